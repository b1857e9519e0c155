// Package tokenizer turns raw text into the normalized term stream shared by
// indexing and querying. Terms come from bleve language analyzers
// (lowercasing, stop words, stemming), looked up per language through a
// process-wide Registry.
package tokenizer

import (
	"github.com/blevesearch/bleve/v2/mapping"
)

// DefaultLanguage is used when a request does not name one.
const DefaultLanguage = "en"

// Tokenizer produces terms for a single language. It is immutable and safe
// for concurrent use.
type Tokenizer struct {
	language string
	mapping  *mapping.IndexMappingImpl
}

// Language returns the analyzer name this tokenizer runs.
func (t *Tokenizer) Language() string {
	return t.language
}

// Tokenize returns every term of text in order, repeats included.
func (t *Tokenizer) Tokenize(text string) []string {
	tokens := make([]string, 0) // Initialize as empty slice, not nil
	if text == "" {
		return tokens
	}

	stream, err := t.mapping.AnalyzeText(t.language, []byte(text))
	if err != nil {
		// the analyzer was resolved when the tokenizer was built
		return tokens
	}
	for _, token := range stream {
		if len(token.Term) > 0 {
			tokens = append(tokens, string(token.Term))
		}
	}
	return tokens
}

// Unique returns the distinct terms of text, keeping first occurrences in order.
func (t *Tokenizer) Unique(text string) []string {
	terms := t.Tokenize(text)
	seen := make(map[string]struct{}, len(terms))
	unique := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		unique = append(unique, term)
	}
	return unique
}
