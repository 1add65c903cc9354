package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"autoapply/models"
)

func testProfile() *models.ApplicantProfile {
	return &models.ApplicantProfile{
		FirstName:         "Jane",
		LastName:          "Doe",
		FullName:          "Jane Doe",
		Email:             "jane@example.com",
		Phone:             "555-0100",
		City:              "Austin",
		State:             "TX",
		Country:           "United States",
		LinkedIn:          "https://linkedin.com/in/janedoe",
		CurrentCompany:    "Acme Corp",
		CurrentTitle:      "Software Engineer",
		University:        "UT Austin",
		Degree:            "Bachelor's Degree",
		YearsOfExperience: 4,
		ExtraAnswers: map[string]string{
			"Desired Salary": "120000",
		},
	}
}

func TestBuildProfileMapping_DropsBlankValues(t *testing.T) {
	profile := &models.ApplicantProfile{FirstName: "Jane"}
	mapping := BuildProfileMapping(profile)

	assert.Equal(t, "Jane", mapping["first_name"])
	_, hasEmail := mapping["email"]
	assert.False(t, hasEmail, "blank profile attributes must not appear in the mapping")
	_, hasGradYear := mapping["graduation_year"]
	assert.False(t, hasGradYear, "zero graduation year must not appear in the mapping")
}

func TestBuildProfileMapping_FoldsExtraAnswers(t *testing.T) {
	mapping := BuildProfileMapping(testProfile())

	assert.Equal(t, "120000", mapping["desired_salary"])
	assert.Equal(t, "4", mapping["years_of_experience"])
}

func TestResolveValue_ProfileMatch(t *testing.T) {
	mapping := BuildProfileMapping(testProfile())

	field := DetectedField{Category: CategoryText, Label: "First Name", Identifier: "first_name"}
	assert.Equal(t, "Jane", ResolveValue(field, mapping))

	field = DetectedField{Category: CategoryText, Label: "Email Address", Identifier: "email"}
	assert.Equal(t, "jane@example.com", ResolveValue(field, mapping))
}

func TestResolveValue_LongestKeyWins(t *testing.T) {
	mapping := map[string]string{
		"name":       "Jane Doe",
		"first_name": "Jane",
	}
	field := DetectedField{Category: CategoryText, Label: "First Name", Identifier: ""}

	assert.Equal(t, "Jane", ResolveValue(field, mapping))
}

func TestResolveValue_UnmatchedTextStaysEmpty(t *testing.T) {
	mapping := BuildProfileMapping(testProfile())
	field := DetectedField{Category: CategoryText, Label: "Favorite Color", Identifier: "color"}

	assert.Equal(t, "", ResolveValue(field, mapping), "text fields are never guessed")
}

func TestResolveValue_SensitiveRadioIgnoresProfile(t *testing.T) {
	// Even a profile answer that would match the question text must not flip
	// a criminal-history or sponsorship answer.
	mapping := map[string]string{
		"have_you_ever_been_convicted_of_a_felony": "Yes",
		"sponsor": "Yes",
	}

	field := DetectedField{Category: CategoryRadio, Label: "Have you ever been convicted of a felony?"}
	assert.Equal(t, "No", ResolveValue(field, mapping))

	field = DetectedField{Category: CategoryRadio, Label: "Will you require visa sponsorship?"}
	assert.Equal(t, "No", ResolveValue(field, mapping))
}

func TestResolveValue_MarketingCheckboxStaysUnchecked(t *testing.T) {
	mapping := map[string]string{"newsletter": "true"}
	field := DetectedField{Category: CategoryCheckbox, Label: "Subscribe to our newsletter"}

	assert.Equal(t, "false", ResolveValue(field, mapping))
}

func TestCategoryDefault_Radio(t *testing.T) {
	assert.Equal(t, "Yes", CategoryDefault(CategoryRadio, "Are you legally authorized to work?"))
	assert.Equal(t, "Yes", CategoryDefault(CategoryRadio, "Are you willing to relocate?"))
	assert.Equal(t, "No", CategoryDefault(CategoryRadio, "Have you previously employed by Acme?"))
	assert.Equal(t, "No", CategoryDefault(CategoryRadio, "Some question we do not recognize"))
}

func TestCategoryDefault_Checkbox(t *testing.T) {
	assert.Equal(t, "true", CategoryDefault(CategoryCheckbox, "I agree to the terms and conditions"))
	assert.Equal(t, "false", CategoryDefault(CategoryCheckbox, "Send me promotional emails"))
}

func TestCategoryDefault_Select(t *testing.T) {
	assert.Equal(t, "United States", CategoryDefault(CategorySelect, "Country of residence"))
	assert.Equal(t, "Prefer not to say", CategoryDefault(CategorySelect, "Gender identity"))
	assert.Equal(t, "Not a veteran", CategoryDefault(CategorySelect, "Veteran status"))
	assert.Equal(t, "", CategoryDefault(CategorySelect, "Favorite programming language"))
}

func TestCategoryDefault_Date(t *testing.T) {
	expected := time.Now().AddDate(0, 0, 14).Format("2006-01-02")
	assert.Equal(t, expected, CategoryDefault(CategoryDate, "Available start date"))
	assert.Equal(t, "", CategoryDefault(CategoryDate, "Date of birth"))
}

func TestResolveValue_Deterministic(t *testing.T) {
	mapping := BuildProfileMapping(testProfile())
	field := DetectedField{Category: CategoryText, Label: "Phone Number", Identifier: "phone"}

	first := ResolveValue(field, mapping)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ResolveValue(field, mapping))
	}
}
