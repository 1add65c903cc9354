package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreConfidence_KeywordBoost(t *testing.T) {
	plain := ScoreConfidence(CategoryText, "Something generic", "misc_field")
	boosted := ScoreConfidence(CategoryText, "Email Address", "email")

	assert.Greater(t, boosted, plain)
	assert.Equal(t, 0.8, boosted) // base 0.5 + keyword 0.2 + identifier 0.1
}

func TestScoreConfidence_EmptyLabelPenalty(t *testing.T) {
	score := ScoreConfidence(CategoryText, "", "")
	assert.InDelta(t, 0.25, score, 0.001)
	assert.Less(t, score, ConfidenceFloor)
}

func TestScoreConfidence_ShortLabelPenalty(t *testing.T) {
	short := ScoreConfidence(CategoryText, "ab", "x")
	full := ScoreConfidence(CategoryText, "abc", "x")
	assert.Less(t, short, full)
}

func TestScoreConfidence_Clamped(t *testing.T) {
	for _, category := range Categories() {
		score := ScoreConfidence(category, "Email phone name resume date country agree yes", "email_phone")
		assert.LessOrEqual(t, score, 1.0)
		assert.GreaterOrEqual(t, score, 0.0)
	}
}

func TestDedupeFields_IdentifierWins(t *testing.T) {
	fields := []DetectedField{
		{Category: CategoryText, Label: "Email", Identifier: "email", Confidence: 0.8},
		{Category: CategoryText, Label: "Email Address", Identifier: "email", Confidence: 0.7},
	}

	result := dedupeFields(fields)
	assert.Len(t, result, 1)
	assert.Equal(t, "Email", result[0].Label, "first discovered wins")
}

func TestDedupeFields_LabelCategoryPair(t *testing.T) {
	fields := []DetectedField{
		{Category: CategoryText, Label: "Phone", Identifier: "phone_a"},
		{Category: CategoryText, Label: "Phone", Identifier: "phone_b"},
		{Category: CategorySelect, Label: "Phone", Identifier: "phone_c"},
	}

	result := dedupeFields(fields)
	// Same label in a different category is a different field.
	assert.Len(t, result, 2)
	assert.Equal(t, CategoryText, result[0].Category)
	assert.Equal(t, CategorySelect, result[1].Category)
}

func TestDedupeFields_EmptyIdentifiersNeverCollide(t *testing.T) {
	fields := []DetectedField{
		{Category: CategoryRadio, Label: "Question A", Identifier: ""},
		{Category: CategoryRadio, Label: "Question B", Identifier: ""},
	}

	result := dedupeFields(fields)
	assert.Len(t, result, 2)
}

func TestSortByConfidence(t *testing.T) {
	fields := []DetectedField{
		{Label: "low", Confidence: 0.4},
		{Label: "high", Confidence: 0.9},
		{Label: "mid", Confidence: 0.6},
	}
	sortByConfidence(fields)

	assert.Equal(t, "high", fields[0].Label)
	assert.Equal(t, "mid", fields[1].Label)
	assert.Equal(t, "low", fields[2].Label)
}

func TestDedupeAndRank_Idempotent(t *testing.T) {
	fields := []DetectedField{
		{Category: CategoryText, Label: "Email", Identifier: "email", Confidence: 0.8},
		{Category: CategoryText, Label: "Email Address", Identifier: "email", Confidence: 0.7},
		{Category: CategoryRadio, Label: "Work authorized?", Identifier: "", Confidence: 0.9},
		{Category: CategorySelect, Label: "Country", Identifier: "country", Confidence: 0.8},
	}

	once := dedupeFields(fields)
	sortByConfidence(once)

	// Feeding an already-clean set back through the pipeline changes nothing.
	twice := dedupeFields(once)
	sortByConfidence(twice)
	assert.Equal(t, once, twice)
}

func TestHumanizeIdentifier(t *testing.T) {
	classifier := NewFieldClassifier()

	assert.Equal(t, "First Name", classifier.HumanizeIdentifier("first_name"))
	assert.Equal(t, "Candidate Email", classifier.HumanizeIdentifier("candidate-email"))
	assert.Equal(t, "Job Application Phone", classifier.HumanizeIdentifier("job[application][phone]"))
	assert.Equal(t, "", classifier.HumanizeIdentifier(""))
}

func TestTrimLabel(t *testing.T) {
	assert.Equal(t, "Email", trimLabel("  Email *  "))
	assert.Equal(t, "Phone", trimLabel("Phone:"))

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, trimLabel(string(long)), 120)
}
