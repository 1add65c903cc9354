package models

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"
)

type JobApplication struct {
	ID              int       `json:"id"`
	ApplicationCode string    `json:"application_code"` // 8-character unique code
	UserID          int       `json:"user_id"`
	SessionID       string    `json:"session_id"`
	JobURL          string    `json:"job_url"`
	Status          string    `json:"status"`
	StatusMessage   string    `json:"status_message,omitempty"`
	ScreenshotPath  string    `json:"screenshot_path,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type JobApplicationModel struct {
	DB *sql.DB
}

func NewJobApplicationModel(db *sql.DB) *JobApplicationModel {
	return &JobApplicationModel{DB: db}
}

// generateApplicationCode generates a unique 8-character alphanumeric code
func generateApplicationCode() string {
	bytes := make([]byte, 4) // 4 bytes = 8 hex characters
	rand.Read(bytes)
	return strings.ToUpper(hex.EncodeToString(bytes))
}

func (m *JobApplicationModel) Create(userID int, sessionID, jobURL string) (*JobApplication, error) {
	application := &JobApplication{}

	applicationCode := generateApplicationCode()

	// Check if code already exists and regenerate if needed
	for {
		var exists bool
		err := m.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM job_applications WHERE application_code = $1)", applicationCode).Scan(&exists)
		if err != nil || !exists {
			break
		}
		applicationCode = generateApplicationCode()
	}

	query := `
		INSERT INTO job_applications (application_code, user_id, session_id, job_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, application_code, user_id, session_id, job_url, status, created_at, updated_at
	`
	err := m.DB.QueryRow(query, applicationCode, userID, sessionID, jobURL, time.Now()).Scan(
		&application.ID, &application.ApplicationCode, &application.UserID, &application.SessionID,
		&application.JobURL, &application.Status, &application.CreatedAt, &application.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return application, nil
}

func (m *JobApplicationModel) GetByUserID(userID int, limit, offset int) ([]JobApplication, error) {
	applications := []JobApplication{}
	query := `
		SELECT id, application_code, user_id, session_id, job_url, status, status_message, screenshot_path, created_at, updated_at
		FROM job_applications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := m.DB.Query(query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var app JobApplication
		var message, screenshot sql.NullString
		err := rows.Scan(
			&app.ID, &app.ApplicationCode, &app.UserID, &app.SessionID, &app.JobURL,
			&app.Status, &message, &screenshot, &app.CreatedAt, &app.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		app.StatusMessage = message.String
		app.ScreenshotPath = screenshot.String
		applications = append(applications, app)
	}
	return applications, nil
}

// GetByApplicationCode retrieves a job application by its unique code
func (m *JobApplicationModel) GetByApplicationCode(applicationCode string) (*JobApplication, error) {
	application := &JobApplication{}
	query := `
		SELECT id, application_code, user_id, session_id, job_url, status, status_message, screenshot_path, created_at, updated_at
		FROM job_applications WHERE application_code = $1
	`
	var message, screenshot sql.NullString
	err := m.DB.QueryRow(query, applicationCode).Scan(
		&application.ID, &application.ApplicationCode, &application.UserID, &application.SessionID,
		&application.JobURL, &application.Status, &message, &screenshot, &application.CreatedAt, &application.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	application.StatusMessage = message.String
	application.ScreenshotPath = screenshot.String
	return application, nil
}

// UpdateOutcome records the terminal status of the automation session that
// owns this application row.
func (m *JobApplicationModel) UpdateOutcome(sessionID, status, message, screenshotPath string) error {
	query := `
		UPDATE job_applications
		SET status = $1, status_message = $2, screenshot_path = $3, updated_at = $4
		WHERE session_id = $5
	`
	_, err := m.DB.Exec(query, status, message, screenshotPath, time.Now(), sessionID)
	return err
}

func (m *JobApplicationModel) Delete(id int) error {
	query := `DELETE FROM job_applications WHERE id = $1`
	_, err := m.DB.Exec(query, id)
	return err
}
