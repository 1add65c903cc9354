package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// FillError reports a DOM interaction failure for one field.
type FillError struct {
	Identifier string
	Category   FieldCategory
	Err        error
}

func (e *FillError) Error() string {
	return fmt.Sprintf("fill failed for %s field %q: %v", e.Category, e.Identifier, e.Err)
}

func (e *FillError) Unwrap() error {
	return e.Err
}

// FailedField records one field that was detected but could not be filled.
type FailedField struct {
	Identifier string        `json:"identifier"`
	Label      string        `json:"label"`
	Category   FieldCategory `json:"category"`
	Required   bool          `json:"required"`
	Reason     string        `json:"reason"`
}

// FillResult is the outcome of one fill pass: what was written, keyed by
// identifier (or label when the identifier is empty), plus the fields that
// could not be filled and why.
type FillResult struct {
	Filled map[string]string `json:"filled"`
	Failed []FailedField     `json:"failed,omitempty"`
}

func NewFillResult() *FillResult {
	return &FillResult{Filled: make(map[string]string)}
}

// RequiredFailures counts failed fields that the page marked required.
func (r *FillResult) RequiredFailures() int {
	count := 0
	for _, failure := range r.Failed {
		if failure.Required {
			count++
		}
	}
	return count
}

func (r *FillResult) recordFilled(field DetectedField, value string) {
	key := field.Identifier
	if key == "" {
		key = field.Label
	}
	r.Filled[key] = value
}

func (r *FillResult) recordFailed(field DetectedField, reason string) {
	r.Failed = append(r.Failed, FailedField{
		Identifier: field.Identifier,
		Label:      field.Label,
		Category:   field.Category,
		Required:   field.Required,
		Reason:     reason,
	})
}

// radioGroupJS enumerates the sibling options of a radio input so the match
// decision can happen in Go.
const radioGroupJS = `el => {
	const group = el.name
		? Array.from(el.ownerDocument.querySelectorAll('input[type="radio"][name="' + CSS.escape(el.name) + '"]'))
		: [el];
	return group.map(opt => {
		let label = '';
		if (opt.id) {
			const lbl = opt.ownerDocument.querySelector('label[for="' + CSS.escape(opt.id) + '"]');
			if (lbl) label = lbl.textContent.trim();
		}
		if (!label) {
			const parent = opt.closest('label');
			if (parent) label = parent.textContent.trim();
		}
		return { value: opt.value || '', label: label };
	});
}`

const radioSelectJS = `(el, idx) => {
	const group = el.name
		? Array.from(el.ownerDocument.querySelectorAll('input[type="radio"][name="' + CSS.escape(el.name) + '"]'))
		: [el];
	if (idx >= 0 && idx < group.length) {
		group[idx].click();
		return true;
	}
	return false;
}`

// FillExecutor performs the category-appropriate DOM interaction for each
// resolved field. One recalcitrant control never aborts the pass: its
// failure is recorded and execution moves on.
type FillExecutor struct{}

func NewFillExecutor() *FillExecutor {
	return &FillExecutor{}
}

// FillAll resolves and fills every field, collecting outcomes in a
// FillResult. File fields are skipped here; the upload service stages them
// before this runs.
func (e *FillExecutor) FillAll(fields []DetectedField, mapping map[string]string) *FillResult {
	result := NewFillResult()
	log.Printf("=== Filling %d detected fields ===", len(fields))

	for _, field := range fields {
		if field.Category == CategoryFile {
			continue
		}

		value := ResolveValue(field, mapping)
		if value == "" {
			if field.Required {
				result.recordFailed(field, "no value could be resolved")
			}
			continue
		}

		if err := e.Fill(field, value); err != nil {
			log.Printf("WARNING: %v", err)
			result.recordFailed(field, err.Error())
			continue
		}
		result.recordFilled(field, value)
		log.Printf("✓ Filled %s field %q", field.Category, field.Label)
	}

	log.Printf("Fill pass complete: %d filled, %d failed", len(result.Filled), len(result.Failed))
	return result
}

// Fill writes one resolved value into its control.
func (e *FillExecutor) Fill(field DetectedField, value string) error {
	var err error
	switch field.Category {
	case CategoryText, CategoryDate:
		err = e.fillText(field, value)
	case CategoryCheckbox:
		err = e.fillCheckbox(field, value)
	case CategoryRadio:
		err = e.fillRadio(field, value)
	case CategorySelect:
		err = e.fillSelect(field, value)
	case CategoryFile:
		err = fmt.Errorf("file fields are staged by the upload service")
	default:
		err = fmt.Errorf("unknown category %q", field.Category)
	}
	if err != nil {
		return &FillError{Identifier: field.Identifier, Category: field.Category, Err: err}
	}
	return nil
}

// fillText overwrites the control's value; Fill replaces rather than
// appends.
func (e *FillExecutor) fillText(field DetectedField, value string) error {
	return field.Element.Fill(value)
}

// fillCheckbox checks the box for truthy values and otherwise leaves it
// untouched -- it never unchecks a pre-checked control.
func (e *FillExecutor) fillCheckbox(field DetectedField, value string) error {
	if !TruthyCheckboxValue(value) {
		return nil
	}
	return field.Element.Check()
}

// fillRadio enumerates the group's options and selects the first whose
// value or label text matches the resolved value. No match leaves the group
// untouched and reports a soft failure.
func (e *FillExecutor) fillRadio(field DetectedField, value string) error {
	raw, err := field.Element.Evaluate(radioGroupJS, nil)
	if err != nil {
		return fmt.Errorf("could not enumerate radio group: %w", err)
	}

	options := decodeOptions(raw)
	idx := PickOption(value, options)
	if idx < 0 {
		return fmt.Errorf("no radio option matched %q", value)
	}

	clicked, err := field.Element.Evaluate(radioSelectJS, idx)
	if err != nil {
		return fmt.Errorf("could not select radio option: %w", err)
	}
	if clicked != true {
		return fmt.Errorf("radio option %d out of range", idx)
	}
	return nil
}

// fillSelect matches against a native select's options and selects by
// visible label. Custom components that are not native selectors get the
// value written directly, as if they were text fields.
func (e *FillExecutor) fillSelect(field DetectedField, value string) error {
	raw, err := field.Element.Evaluate(`el => {
		if (el.tagName !== 'SELECT') return null;
		return Array.from(el.options).map(o => ({ value: o.value || '', label: o.textContent.trim() }));
	}`, nil)
	if err != nil {
		return fmt.Errorf("could not enumerate select options: %w", err)
	}

	if raw == nil {
		// Custom dropdown component; best effort is typing the value.
		return field.Element.Fill(value)
	}

	options := decodeOptions(raw)
	idx := PickOption(value, options)
	if idx < 0 {
		return fmt.Errorf("no select option matched %q", value)
	}

	_, err = field.Element.SelectOption(playwright.SelectOptionValues{
		Labels: &[]string{options[idx].Label},
	})
	return err
}

// OptionChoice is one selectable alternative of a radio group or select.
type OptionChoice struct {
	Value string
	Label string
}

// PickOption returns the index of the first option whose value or label is a
// case-insensitive substring match (in either direction) of the resolved
// value, or -1 when nothing matches.
func PickOption(resolved string, options []OptionChoice) int {
	resolved = strings.ToLower(strings.TrimSpace(resolved))
	if resolved == "" {
		return -1
	}
	for i, option := range options {
		if matchesEitherWay(resolved, strings.ToLower(option.Value)) ||
			matchesEitherWay(resolved, strings.ToLower(option.Label)) {
			return i
		}
	}
	return -1
}

func matchesEitherWay(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// TruthyCheckboxValue interprets "true" or a case-insensitive "yes" as
// checked; anything else leaves the box as is.
func TruthyCheckboxValue(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "true" || value == "yes"
}

func decodeOptions(raw interface{}) []OptionChoice {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	options := make([]OptionChoice, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		option := OptionChoice{}
		if v, ok := entry["value"].(string); ok {
			option.Value = v
		}
		if l, ok := entry["label"].(string); ok {
			option.Label = l
		}
		options = append(options, option)
	}
	return options
}
