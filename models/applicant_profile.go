package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// ApplicantProfile is the normalized applicant data consumed by the form
// automation engine. It is immutable input for the duration of one session;
// the engine never writes back to it.
type ApplicantProfile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
	LinkedIn  string `json:"linkedin"`
	Portfolio string `json:"portfolio"`

	CurrentCompany string `json:"current_company"`
	CurrentTitle   string `json:"current_title"`
	University     string `json:"university"`
	Major          string `json:"major"`
	Degree         string `json:"degree"`
	GraduationYear int    `json:"graduation_year"`

	YearsOfExperience   int    `json:"years_of_experience"`
	WorkAuthorization   string `json:"work_authorization"` // "yes", "no", "requires_sponsorship"
	RequiresSponsorship bool   `json:"requires_sponsorship"`
	WillingToRelocate   bool   `json:"willing_to_relocate"`
	AvailableStartDate  string `json:"available_start_date"`
	SalaryExpectation   string `json:"salary_expectation"`

	Gender           string `json:"gender"`
	Ethnicity        string `json:"ethnicity"`
	VeteranStatus    string `json:"veteran_status"`
	DisabilityStatus string `json:"disability_status"`

	// CoverLetter is supplied ready-made (user-written or AI-generated);
	// the engine treats it as an opaque string.
	CoverLetter string `json:"cover_letter,omitempty"`

	// ExtraAnswers stores saved question/answer pairs for fields outside
	// the fixed schema.
	ExtraAnswers map[string]string `json:"extra_answers,omitempty"`
}

type ApplicantProfileModel struct {
	DB *sql.DB
}

func NewApplicantProfileModel(db *sql.DB) *ApplicantProfileModel {
	return &ApplicantProfileModel{DB: db}
}

// GetByUserID loads the stored profile for a user. Returns sql.ErrNoRows if
// the user has not saved one yet.
func (m *ApplicantProfileModel) GetByUserID(userID int) (*ApplicantProfile, error) {
	var raw []byte
	query := `SELECT profile_data FROM applicant_profiles WHERE user_id = $1`
	if err := m.DB.QueryRow(query, userID).Scan(&raw); err != nil {
		return nil, err
	}

	profile := &ApplicantProfile{}
	if err := json.Unmarshal(raw, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Upsert saves the profile as a JSON document, replacing any previous one.
func (m *ApplicantProfileModel) Upsert(userID int, profile *ApplicantProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO applicant_profiles (user_id, profile_data, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE SET profile_data = $2, updated_at = $3
	`
	_, err = m.DB.Exec(query, userID, raw, time.Now())
	return err
}
