package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategories_ClosedSetInScanOrder(t *testing.T) {
	expected := []FieldCategory{
		CategoryText,
		CategorySelect,
		CategoryRadio,
		CategoryCheckbox,
		CategoryFile,
		CategoryDate,
	}
	assert.Equal(t, expected, Categories())
}

func TestSelectorsFor_EveryCategoryHasPatterns(t *testing.T) {
	for _, category := range Categories() {
		selectors := SelectorsFor(category)
		assert.NotEmpty(t, selectors, "category %s has no selectors", category)
		for _, selector := range selectors {
			assert.NotEmpty(t, selector)
		}
	}
}

func TestSelectorsFor_UnknownCategory(t *testing.T) {
	assert.Empty(t, SelectorsFor(FieldCategory("bogus")))
}
