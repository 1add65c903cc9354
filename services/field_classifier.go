package services

import (
	"log"
	"sort"
	"strings"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DetectedField is one classified control discovered on a page. The Element
// handle is only valid for the lifetime of the page that produced it and is
// never persisted or shared across sessions.
type DetectedField struct {
	Element      playwright.Locator `json:"-"`
	Category     FieldCategory      `json:"category"`
	Label        string             `json:"label"`
	Identifier   string             `json:"identifier"`
	Required     bool               `json:"required"`
	DefaultValue string             `json:"default_value,omitempty"`
	Confidence   float64            `json:"confidence"`
}

// ConfidenceFloor is the acceptance threshold; fields scoring below it are
// discarded before being returned to callers.
const ConfidenceFloor = 0.3

// labelExtractionJS walks the DOM around an element looking for a
// human-readable label. The strategies run in priority order and the first
// non-empty hit wins: explicit label[for], enclosing label, adjacent sibling
// label, then the leading text of the nearest block container.
const labelExtractionJS = `el => {
	const clean = t => (t || '').replace(/\s+/g, ' ').trim();
	if (el.id) {
		const lbl = el.ownerDocument.querySelector('label[for="' + CSS.escape(el.id) + '"]');
		if (lbl && clean(lbl.textContent)) return clean(lbl.textContent);
	}
	const parentLabel = el.closest('label');
	if (parentLabel && clean(parentLabel.textContent)) return clean(parentLabel.textContent);
	let prev = el.previousElementSibling;
	if (prev && prev.tagName === 'LABEL' && clean(prev.textContent)) return clean(prev.textContent);
	const block = el.closest('div, fieldset, li, td');
	if (block) {
		for (const node of block.childNodes) {
			if (node.nodeType === 3 && clean(node.textContent)) return clean(node.textContent);
			if (node.nodeType === 1 && node !== el && /^(LABEL|LEGEND|SPAN|P)$/.test(node.tagName)) {
				const t = clean(node.textContent);
				if (t) return t;
			}
		}
	}
	return '';
}`

// requiredTextJS checks the surrounding block for a required marker when the
// element carries no required attribute.
const requiredTextJS = `el => {
	const block = el.closest('div, fieldset, li, td');
	if (!block) return false;
	const text = (block.textContent || '').toLowerCase();
	return text.includes('*') || text.includes('required') || text.includes('mandatory');
}`

// FieldClassifier scans a live page with the selector catalog and produces a
// deduplicated, confidence-ranked field set. It performs page queries only;
// running it twice against an unchanged page yields the same fields.
type FieldClassifier struct {
	titleCaser cases.Caser
}

func NewFieldClassifier() *FieldClassifier {
	return &FieldClassifier{
		titleCaser: cases.Title(language.English),
	}
}

// DetectFields discovers every visible, enabled control matching the selector
// catalog, classifies it and returns the surviving fields sorted by
// descending confidence. Per-element failures (detached nodes, attribute
// read timeouts) skip that element only; a failing selector pattern never
// aborts the scan.
func (c *FieldClassifier) DetectFields(page playwright.Page) []DetectedField {
	var fields []DetectedField

	for _, category := range Categories() {
		for _, selector := range SelectorsFor(category) {
			elements, err := page.Locator(selector).All()
			if err != nil {
				log.Printf("WARNING: selector %q failed: %v", selector, err)
				continue
			}
			for _, el := range elements {
				field, ok := c.classifyElement(el, category)
				if ok {
					fields = append(fields, field)
				}
			}
		}
	}

	fields = dedupeFields(fields)
	sortByConfidence(fields)
	log.Printf("Detected %d form fields", len(fields))
	return fields
}

// classifyElement inspects one matched element. It returns false for
// elements that are hidden, disabled, unlabeled and unnamed, or that score
// below the confidence floor.
func (c *FieldClassifier) classifyElement(el playwright.Locator, category FieldCategory) (DetectedField, bool) {
	visible, err := el.IsVisible()
	if err != nil || !visible {
		return DetectedField{}, false
	}
	enabled, err := el.IsEnabled()
	if err != nil || !enabled {
		return DetectedField{}, false
	}

	identifier := c.extractIdentifier(el)
	label := c.extractLabel(el)
	if label == "" {
		label = c.HumanizeIdentifier(identifier)
	}
	if label == "" && identifier == "" {
		return DetectedField{}, false
	}

	field := DetectedField{
		Element:      el,
		Category:     category,
		Label:        label,
		Identifier:   identifier,
		Required:     c.detectRequired(el),
		DefaultValue: CategoryDefault(category, label+" "+identifier),
		Confidence:   ScoreConfidence(category, label, identifier),
	}
	if field.Confidence < ConfidenceFloor {
		return DetectedField{}, false
	}
	return field, true
}

func (c *FieldClassifier) extractIdentifier(el playwright.Locator) string {
	if name, err := el.GetAttribute("name"); err == nil && name != "" {
		return name
	}
	if id, err := el.GetAttribute("id"); err == nil && id != "" {
		return id
	}
	return ""
}

// extractLabel tries the DOM-walking strategies first, then the attribute
// fallbacks: placeholder, aria-label, title, structured data attributes.
func (c *FieldClassifier) extractLabel(el playwright.Locator) string {
	if raw, err := el.Evaluate(labelExtractionJS, nil); err == nil {
		if text, ok := raw.(string); ok && text != "" {
			return trimLabel(text)
		}
	}
	for _, attr := range []string{"placeholder", "aria-label", "title", "data-label", "data-field-name"} {
		if value, err := el.GetAttribute(attr); err == nil && strings.TrimSpace(value) != "" {
			return trimLabel(value)
		}
	}
	return ""
}

func (c *FieldClassifier) detectRequired(el playwright.Locator) bool {
	if required, err := el.GetAttribute("required"); err == nil && (required == "" || required == "true" || required == "required") {
		// GetAttribute returns "" both for a bare required attribute and a
		// missing one, so confirm via the DOM property.
		if raw, evalErr := el.Evaluate("el => el.required === true", nil); evalErr == nil {
			if isRequired, ok := raw.(bool); ok && isRequired {
				return true
			}
		}
		if required == "true" || required == "required" {
			return true
		}
	}
	if ariaRequired, err := el.GetAttribute("aria-required"); err == nil && ariaRequired == "true" {
		return true
	}
	if raw, err := el.Evaluate(requiredTextJS, nil); err == nil {
		if marked, ok := raw.(bool); ok && marked {
			return true
		}
	}
	return false
}

// HumanizeIdentifier turns a name/id attribute like "first_name" or
// "candidate-email" into a readable label.
func (c *FieldClassifier) HumanizeIdentifier(identifier string) string {
	if identifier == "" {
		return ""
	}
	s := strings.NewReplacer("_", " ", "-", " ", ".", " ", "[", " ", "]", " ").Replace(identifier)
	s = strings.Join(strings.Fields(s), " ")
	return c.titleCaser.String(strings.ToLower(s))
}

// confidenceKeywords lists, per category, tokens whose presence in the label
// or identifier boosts the score. Text tokens cover contact fields; radio
// tokens cover the yes/no question shapes ATS vendors use.
var confidenceKeywords = map[FieldCategory][]string{
	CategoryText:     {"name", "email", "phone", "address", "city", "state", "zip", "linkedin", "website", "portfolio", "company", "title", "school", "university"},
	CategorySelect:   {"country", "state", "degree", "experience", "gender", "ethnicity", "veteran", "disability", "how did you hear"},
	CategoryRadio:    {"yes", "no", "?", "are you", "do you", "have you", "authorized", "sponsor", "willing"},
	CategoryCheckbox: {"agree", "terms", "consent", "acknowledge", "subscribe", "newsletter", "updates"},
	CategoryFile:     {"resume", "cv", "cover letter", "attach", "upload"},
	CategoryDate:     {"date", "start", "available", "graduation"},
}

// ScoreConfidence estimates how likely the element is a genuine, correctly
// classified form field. Base 0.5, boosted by category keyword hits and a
// usable identifier, penalized for short or empty labels, clamped to [0,1].
func ScoreConfidence(category FieldCategory, label, identifier string) float64 {
	score := 0.5
	context := strings.ToLower(label + " " + identifier)

	for _, keyword := range confidenceKeywords[category] {
		if strings.Contains(context, keyword) {
			score += 0.2
			break
		}
	}
	if identifier != "" {
		score += 0.1
	}
	switch {
	case strings.TrimSpace(label) == "":
		score -= 0.25
	case len(strings.TrimSpace(label)) < 3:
		score -= 0.2
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}

// dedupeFields enforces the detection invariant: no two fields share a
// non-empty identifier, and no two fields share the same (label, category)
// pair. First discovered wins.
func dedupeFields(fields []DetectedField) []DetectedField {
	seenIdentifier := make(map[string]bool)
	seenLabel := make(map[string]bool)
	result := make([]DetectedField, 0, len(fields))

	for _, field := range fields {
		if field.Identifier != "" {
			if seenIdentifier[field.Identifier] {
				continue
			}
		}
		labelKey := field.Label + "|" + string(field.Category)
		if field.Label != "" && seenLabel[labelKey] {
			continue
		}
		if field.Identifier != "" {
			seenIdentifier[field.Identifier] = true
		}
		if field.Label != "" {
			seenLabel[labelKey] = true
		}
		result = append(result, field)
	}
	return result
}

func sortByConfidence(fields []DetectedField) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Confidence > fields[j].Confidence
	})
}

func trimLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "*")
	s = strings.TrimSpace(strings.TrimSuffix(s, ":"))
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
