// Package config provides configuration structures for the search service.
// It defines the per-query index settings that determine an index identity
// and the YAML application config loaded at startup.
package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gcbaptista/quicksearch/internal/filter"
	"github.com/gcbaptista/quicksearch/internal/identity"
	"github.com/gcbaptista/quicksearch/internal/tokenizer"
	"github.com/gcbaptista/quicksearch/model"
)

// IndexSettings describes which index a search runs against: the analyzer
// language, the boosted fields and an optional document filter.
//
// Fields are kept ordered by field name. Posting rows store the position of
// a field in this list, so the order must be the same for every query that
// resolves to the same identity.
type IndexSettings struct {
	Language string             `json:"language"` // Analyzer language (e.g., "en", "fr"); defaults to "en"
	Fields   []model.FieldBoost `json:"fields"`   // Indexed fields with their boosts
	Filter   filter.Filter      `json:"-"`        // Optional; restricts which documents are indexed
}

// NewIndexSettings builds settings with defaults applied.
func NewIndexSettings(language string, fields []model.FieldBoost, f filter.Filter) *IndexSettings {
	settings := &IndexSettings{Language: language, Fields: fields, Filter: f}
	settings.ApplyDefaults()
	return settings
}

// ValidateFieldNames validates field names and boosts for basic requirements.
func (settings *IndexSettings) ValidateFieldNames() []string {
	var conflicts []string

	if len(settings.Fields) == 0 {
		conflicts = append(conflicts, "At least one field must be indexed")
	}

	conflicts = append(conflicts, checkDuplicates("fields", model.FieldNames(settings.Fields))...)

	for _, fb := range settings.Fields {
		if strings.TrimSpace(fb.Field) == "" {
			conflicts = append(conflicts, "Field name cannot be empty or whitespace-only")
			continue
		}
		if fb.Boost <= 0 || math.IsNaN(fb.Boost) || math.IsInf(fb.Boost, 0) {
			conflicts = append(conflicts, fmt.Sprintf("Boost for field '%s' must be a positive number", fb.Field))
		}
		for _, segment := range fb.Path {
			if segment == "" {
				conflicts = append(conflicts, "Field path '"+fb.Field+"' has an empty segment")
				break
			}
		}
	}

	return conflicts
}

// checkDuplicates checks for duplicate values in a slice and returns error messages
func checkDuplicates(fieldName string, fields []string) []string {
	var errors []string
	seen := make(map[string]bool)

	for _, field := range fields {
		if seen[field] {
			errors = append(errors, "Duplicate field '"+field+"' found in "+fieldName)
		}
		seen[field] = true
	}

	return errors
}

// ApplyDefaults applies default values to the index settings
func (settings *IndexSettings) ApplyDefaults() {
	if settings.Language == "" {
		settings.Language = tokenizer.DefaultLanguage
	}

	// Initialize empty slices if nil to prevent nil pointer issues
	if settings.Fields == nil {
		settings.Fields = []model.FieldBoost{}
	}

	sort.SliceStable(settings.Fields, func(i, j int) bool {
		return settings.Fields[i].Field < settings.Fields[j].Field
	})
}

// FieldNames returns the indexed field names in posting order.
func (settings *IndexSettings) FieldNames() []string {
	return model.FieldNames(settings.Fields)
}

// FilterSource returns the source text of the filter, or "".
func (settings *IndexSettings) FilterSource() string {
	return filter.SourceOf(settings.Filter)
}

// Identity returns the persisted index name for these settings.
func (settings *IndexSettings) Identity() string {
	return identity.Compute(settings.Language, settings.FieldNames(), settings.FilterSource())
}
