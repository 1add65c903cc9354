package services

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"autoapply/models"
)

// BuildProfileMapping flattens an ApplicantProfile into the key→value view
// the resolver matches field labels against. Keys use underscore form and
// are normalized to spaces at match time. Built once per session.
func BuildProfileMapping(profile *models.ApplicantProfile) map[string]string {
	mapping := map[string]string{
		"first_name":          profile.FirstName,
		"last_name":           profile.LastName,
		"full_name":           profile.FullName,
		"name":                profile.FullName,
		"email":               profile.Email,
		"phone":               profile.Phone,
		"address":             profile.Address,
		"city":                profile.City,
		"state":               profile.State,
		"zip":                 profile.ZipCode,
		"postal":              profile.ZipCode,
		"country":             profile.Country,
		"linkedin":            profile.LinkedIn,
		"portfolio":           profile.Portfolio,
		"website":             profile.Portfolio,
		"current_company":     profile.CurrentCompany,
		"employer":            profile.CurrentCompany,
		"current_title":       profile.CurrentTitle,
		"job_title":           profile.CurrentTitle,
		"university":          profile.University,
		"school":              profile.University,
		"major":               profile.Major,
		"field_of_study":      profile.Major,
		"degree":              profile.Degree,
		"salary":              profile.SalaryExpectation,
		"cover_letter":        profile.CoverLetter,
		"why_interested":      profile.CoverLetter,
		"available_start":     profile.AvailableStartDate,
		"graduation_year":     yearString(profile.GraduationYear),
		"years_of_experience": intString(profile.YearsOfExperience),
	}

	for question, answer := range profile.ExtraAnswers {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(question)), " ", "_")
		if key != "" && answer != "" {
			mapping[key] = answer
		}
	}

	// Drop empty values so a blank profile attribute never wins a match.
	for key, value := range mapping {
		if strings.TrimSpace(value) == "" {
			delete(mapping, key)
		}
	}
	return mapping
}

// ResolveValue decides what to write into one detected field. It first tries
// substring matching against the profile mapping, then falls back to the
// category's safe default. Same inputs always produce the same output.
//
// Legally or ethically sensitive yes/no questions (criminal history,
// sponsorship, marketing opt-ins) resolve to the conservative answer before
// profile matching runs, so no profile key can accidentally flip them.
func ResolveValue(field DetectedField, mapping map[string]string) string {
	context := strings.ToLower(field.Label + " " + field.Identifier)

	switch field.Category {
	case CategoryRadio, CategoryCheckbox:
		if answer, ok := sensitiveDefault(field.Category, context); ok {
			return answer
		}
	}

	if value, ok := matchProfile(context, mapping); ok {
		return value
	}
	return CategoryDefault(field.Category, context)
}

// matchProfile tries every profile key as a substring of the field context,
// with underscores normalized to spaces. Keys are tried longest-first so
// "first_name" beats "name"; ties break alphabetically to keep resolution
// deterministic.
func matchProfile(context string, mapping map[string]string) (string, bool) {
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	for _, key := range keys {
		normalized := strings.ReplaceAll(key, "_", " ")
		if strings.Contains(context, normalized) {
			return mapping[key], true
		}
	}
	return "", false
}

// sensitiveDefault implements the safe-default policy for contexts where
// guessing affirmative would be harmful regardless of profile content.
func sensitiveDefault(category FieldCategory, context string) (string, bool) {
	switch category {
	case CategoryRadio:
		for _, keyword := range []string{"criminal", "felony", "convicted", "background check", "sponsor"} {
			if strings.Contains(context, keyword) {
				return "No", true
			}
		}
	case CategoryCheckbox:
		for _, keyword := range []string{"marketing", "newsletter", "subscribe", "promotional"} {
			if strings.Contains(context, keyword) {
				return "false", true
			}
		}
	}
	return "", false
}

// CategoryDefault produces the safe fallback answer for a field whose
// context matched nothing in the profile. Text fields are never guessed.
func CategoryDefault(category FieldCategory, context string) string {
	context = strings.ToLower(context)
	switch category {
	case CategoryRadio:
		return radioDefault(context)
	case CategoryCheckbox:
		return checkboxDefault(context)
	case CategorySelect:
		return selectDefault(context)
	case CategoryDate:
		return dateDefault(context)
	default:
		return ""
	}
}

// radioDefault answers common yes/no screening questions. Authorization and
// willingness questions get "Yes"; prior-relationship, sponsorship and
// criminal questions get "No". Ambiguous questions default to "No" -- the
// engine never guesses affirmative on a question it does not recognize.
func radioDefault(context string) string {
	noKeywords := []string{
		"previously employed", "ever been employed", "former employee",
		"currently employed by", "relative", "sponsor", "criminal", "felony",
		"convicted", "background", "whatsapp", "non-compete",
	}
	for _, keyword := range noKeywords {
		if strings.Contains(context, keyword) {
			return "No"
		}
	}

	yesKeywords := []string{
		"authorized", "legally", "eligible", "willing", "able to",
		"18 years", "over 18", "commute", "relocate",
	}
	for _, keyword := range yesKeywords {
		if strings.Contains(context, keyword) {
			return "Yes"
		}
	}
	return "No"
}

// checkboxDefault checks agreement/consent boxes and leaves opt-ins alone.
func checkboxDefault(context string) string {
	for _, keyword := range []string{"marketing", "newsletter", "subscribe", "promotional", "text message"} {
		if strings.Contains(context, keyword) {
			return "false"
		}
	}
	for _, keyword := range []string{"agree", "terms", "consent", "acknowledge", "certify", "confirm", "privacy"} {
		if strings.Contains(context, keyword) {
			return "true"
		}
	}
	return "true"
}

// selectAnswers maps select-field contexts to safe fixed answers. An empty
// return means "no safe answer; decide at fill time".
var selectAnswers = []struct {
	keywords []string
	answer   string
}{
	{[]string{"country"}, "United States"},
	{[]string{"degree", "education level"}, "Bachelor's Degree"},
	{[]string{"years of experience", "experience level"}, "3-5 years"},
	{[]string{"gender", "ethnicity", "race", "orientation"}, "Prefer not to say"},
	{[]string{"veteran"}, "Not a veteran"},
	{[]string{"disability"}, "No"},
	{[]string{"how did you hear"}, "Other"},
}

func selectDefault(context string) string {
	for _, entry := range selectAnswers {
		for _, keyword := range entry.keywords {
			if strings.Contains(context, keyword) {
				return entry.answer
			}
		}
	}
	return ""
}

// dateDefault fills start-date questions with two weeks out and graduation
// questions with a fixed placeholder. Everything else stays empty.
func dateDefault(context string) string {
	if strings.Contains(context, "start") || strings.Contains(context, "available") {
		return time.Now().AddDate(0, 0, 14).Format("2006-01-02")
	}
	if strings.Contains(context, "graduation") {
		return "2020-05-15"
	}
	return ""
}

func yearString(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func intString(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
