package services

// FieldCategory classifies a discovered form control. The set is closed;
// a field never changes category after classification.
type FieldCategory string

const (
	CategoryText     FieldCategory = "text"
	CategorySelect   FieldCategory = "select"
	CategoryRadio    FieldCategory = "radio"
	CategoryCheckbox FieldCategory = "checkbox"
	CategoryFile     FieldCategory = "file"
	CategoryDate     FieldCategory = "date"
)

// selectorCatalog maps each control category to its locator patterns in
// priority order. The lists cover the naming conventions we have seen across
// Greenhouse, Lever, Workday, iCIMS and plain company career pages. Kept as
// data so new ATS patterns are a one-line addition.
var selectorCatalog = map[FieldCategory][]string{
	CategoryText: {
		"input[type='text']",
		"input[type='email']",
		"input[type='tel']",
		"input[type='url']",
		"input:not([type])",
		"textarea",
		"input[name*='first_name'], input[name*='firstName']",
		"input[name*='last_name'], input[name*='lastName']",
		"input[name*='email'], input[id*='email']",
		"input[name*='phone'], input[id*='phone']",
		"input[name*='linkedin']",
		"input[placeholder*='Name'], input[placeholder*='Email'], input[placeholder*='Phone']",
	},
	CategorySelect: {
		"select",
		"div[role='combobox']",
		"div[class*='select__control']",
		"input[role='combobox']",
	},
	CategoryRadio: {
		"input[type='radio']",
		"div[role='radiogroup'] input",
	},
	CategoryCheckbox: {
		"input[type='checkbox']",
		"div[role='checkbox']",
	},
	CategoryFile: {
		"input[type='file']",
		"input[name*='resume'], input[name*='cv']",
		"input[accept*='pdf']",
	},
	CategoryDate: {
		"input[type='date']",
		"input[name*='date'], input[id*='date']",
		"input[placeholder*='MM/DD/YYYY'], input[placeholder*='YYYY-MM-DD']",
	},
}

// categoryOrder fixes the scan order so repeated detection runs visit
// elements the same way.
var categoryOrder = []FieldCategory{
	CategoryText,
	CategorySelect,
	CategoryRadio,
	CategoryCheckbox,
	CategoryFile,
	CategoryDate,
}

// Categories returns the closed category set in scan order.
func Categories() []FieldCategory {
	return categoryOrder
}

// SelectorsFor returns the ordered locator patterns for a category. The
// catalog is read-only process-wide state; callers must not mutate the
// returned slice.
func SelectorsFor(category FieldCategory) []string {
	return selectorCatalog[category]
}
