package model

import (
	"sort"
	"strings"
)

// DefaultBoost is applied to fields given as a plain list.
const DefaultBoost = 1.0

// FieldBoost names an indexed field and its relevance weight.
// Path is set when the field name is a dotted deep path ("author.name").
type FieldBoost struct {
	Field string   `json:"field"`
	Path  []string `json:"path,omitempty"`
	Boost float64  `json:"boost"`
}

// NewFieldBoost builds a FieldBoost, splitting dotted names into a path.
func NewFieldBoost(field string, boost float64) FieldBoost {
	fb := FieldBoost{Field: field, Boost: boost}
	if strings.Contains(field, ".") {
		fb.Path = strings.Split(field, ".")
	}
	return fb
}

// FieldBoostsFromList gives every listed field the default boost.
// Duplicates collapse into one entry.
func FieldBoostsFromList(fields []string) []FieldBoost {
	boosts := make(map[string]float64, len(fields))
	for _, field := range fields {
		boosts[field] = DefaultBoost
	}
	return FieldBoostsFromMap(boosts)
}

// FieldBoostsFromMap converts a field→boost mapping into an ordered list.
// Fields are ordered by name: the index identity is derived from the sorted
// field names, so the posting field indexes must follow the same order.
func FieldBoostsFromMap(fields map[string]float64) []FieldBoost {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]FieldBoost, 0, len(names))
	for _, name := range names {
		result = append(result, NewFieldBoost(name, fields[name]))
	}
	return result
}

// FieldNames returns the field names in FieldBoost order.
func FieldNames(fieldBoosts []FieldBoost) []string {
	names := make([]string, len(fieldBoosts))
	for i, fb := range fieldBoosts {
		names[i] = fb.Field
	}
	return names
}
