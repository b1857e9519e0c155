package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldText(t *testing.T) {
	doc := Document{
		"_id":     "1",
		"title":   "the quick brown fox",
		"tags":    []interface{}{"fast", "animal", nil, 3.0},
		"words":   []string{"one", "two"},
		"year":    1999.0,
		"zero":    0.0,
		"flag":    true,
		"off":     false,
		"empty":   "",
		"nested":  map[string]interface{}{"author": map[string]interface{}{"name": "Jane Doe"}},
		"list":    []interface{}{map[string]interface{}{"name": "first"}},
		"matrix":  []interface{}{[]interface{}{"a", "b"}, "c"},
		"objects": map[string]interface{}{"x": 1.0},
		"ratio":   1.5,
	}

	tests := []struct {
		name  string
		field string
		want  string
	}{
		{"plain string", "title", "the quick brown fox"},
		{"array joined with spaces", "tags", "fast animal  3"},
		{"string slice", "words", "one two"},
		{"integer number", "year", "1999"},
		{"fractional number", "ratio", "1.5"},
		{"zero is falsy", "zero", ""},
		{"true stringified", "flag", "true"},
		{"false is falsy", "off", ""},
		{"empty string", "empty", ""},
		{"missing field", "nope", ""},
		{"deep path", "nested.author.name", "Jane Doe"},
		{"deep path through array index", "list.0.name", "first"},
		{"deep path missing intermediate", "nested.editor.name", ""},
		{"deep path through scalar", "title.length", ""},
		{"nested arrays comma joined", "matrix", "a,b c"},
		{"object stringified", "objects", "[object Object]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := doc.FieldText(NewFieldBoost(tt.field, 1))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldBoostsFromList(t *testing.T) {
	fbs := FieldBoostsFromList([]string{"title", "author.name", "body", "title"})

	require.Len(t, fbs, 3)
	assert.Equal(t, []string{"author.name", "body", "title"}, FieldNames(fbs))
	assert.Equal(t, []string{"author", "name"}, fbs[0].Path)
	assert.Nil(t, fbs[1].Path)
	for _, fb := range fbs {
		assert.Equal(t, DefaultBoost, fb.Boost)
	}
}

func TestFieldBoostsFromMap(t *testing.T) {
	fbs := FieldBoostsFromMap(map[string]float64{"title": 3, "body": 1})

	require.Len(t, fbs, 2)
	assert.Equal(t, "body", fbs[0].Field)
	assert.Equal(t, 1.0, fbs[0].Boost)
	assert.Equal(t, "title", fbs[1].Field)
	assert.Equal(t, 3.0, fbs[1].Boost)
}

func TestSearchResponseJSON(t *testing.T) {
	t.Run("empty rows are not null", func(t *testing.T) {
		data, err := json.Marshal(SearchResponse{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"rows":[]}`, string(data))
	})

	t.Run("acknowledgement", func(t *testing.T) {
		data, err := json.Marshal(SearchResponse{OK: true})
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(data))
	})

	t.Run("rows omit empty enrichment", func(t *testing.T) {
		data, err := json.Marshal(SearchResponse{Rows: []ScoredResult{{ID: "1", Score: 0.5}}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"rows":[{"id":"1","score":0.5}]}`, string(data))
	})
}

func TestGetDocumentID(t *testing.T) {
	id, ok := Document{"_id": "abc"}.GetDocumentID()
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = Document{"_id": ""}.GetDocumentID()
	assert.False(t, ok)

	_, ok = Document{"_id": 12.0}.GetDocumentID()
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	doc := Document{
		"title":  "fox",
		"a.b":    "literal dotted key",
		"nested": map[string]interface{}{"name": "Jane", "none": nil},
		"list":   []interface{}{"x", "y"},
	}

	tests := []struct {
		field  string
		want   interface{}
		exists bool
	}{
		{"title", "fox", true},
		{"missing", nil, false},
		{"a.b", "literal dotted key", true},
		{"nested.name", "Jane", true},
		{"nested.none", nil, true},
		{"nested.other", nil, false},
		{"list.1", "y", true},
		{"list.5", nil, false},
		{"title.length", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := doc.Lookup(tt.field)
			assert.Equal(t, tt.exists, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
