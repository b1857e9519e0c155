// Package filter decides which documents an index covers. A Filter is part of
// the index identity through its Source text, so two filters with the same
// source must accept the same documents.
package filter

import (
	"github.com/gcbaptista/quicksearch/model"
)

// Filter accepts or rejects a document. An error excludes the document.
type Filter interface {
	Match(doc model.Document) (bool, error)
	Source() string
}

// Func adapts a Go predicate into a Filter. Source must change whenever the
// predicate's behavior does, or stale indexes will be reused.
type Func struct {
	source string
	fn     func(doc model.Document) (bool, error)
}

// NewFunc wraps fn under the given source text.
func NewFunc(source string, fn func(doc model.Document) (bool, error)) *Func {
	return &Func{source: source, fn: fn}
}

func (f *Func) Match(doc model.Document) (bool, error) {
	return f.fn(doc)
}

func (f *Func) Source() string {
	return f.source
}

// SourceOf returns f.Source(), or "" for a nil filter.
func SourceOf(f Filter) string {
	if f == nil {
		return ""
	}
	return f.Source()
}
