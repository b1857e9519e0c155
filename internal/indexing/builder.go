package indexing

import (
	"fmt"
	"math"

	"github.com/gcbaptista/quicksearch/index"
	"github.com/gcbaptista/quicksearch/internal/filter"
	"github.com/gcbaptista/quicksearch/internal/tokenizer"
	"github.com/gcbaptista/quicksearch/model"
)

// Builder turns one document into the rows of an index: a posting per token
// occurrence and a DocInfo row with the field-length norms.
type Builder struct {
	fields    []model.FieldBoost
	tokenizer *tokenizer.Tokenizer
	filter    filter.Filter

	// OnFilterError, when set, is told about documents excluded because the
	// filter failed on them.
	OnFilterError func(docID string, err error)
}

// NewBuilder creates a builder for the given fields, in posting order.
func NewBuilder(fields []model.FieldBoost, tok *tokenizer.Tokenizer, f filter.Filter) (*Builder, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one field is required")
	}
	if tok == nil {
		return nil, fmt.Errorf("tokenizer cannot be nil")
	}
	return &Builder{fields: fields, tokenizer: tok, filter: f}, nil
}

// Fields returns the fields in posting order.
func (b *Builder) Fields() []model.FieldBoost {
	return b.fields
}

// Build returns the rows of doc. The boolean is false when the document has
// no id, is rejected by the filter, or the filter fails on it; no rows are
// emitted then.
func (b *Builder) Build(doc model.Document) ([]index.Row, bool) {
	docID, ok := doc.GetDocumentID()
	if !ok {
		return nil, false
	}

	if b.filter != nil {
		keep, err := b.filter.Match(doc)
		if err != nil {
			if b.OnFilterError != nil {
				b.OnFilterError(docID, err)
			}
			return nil, false
		}
		if !keep {
			return nil, false
		}
	}

	singleField := len(b.fields) == 1
	norms := make([]float64, len(b.fields))
	rows := make([]index.Row, 0)

	for i, fb := range b.fields {
		text := doc.FieldText(fb)
		if text == "" {
			continue
		}
		terms := b.tokenizer.Tokenize(text)

		field := i
		if singleField {
			field = index.NoField
		}
		for _, term := range terms {
			rows = append(rows, index.NewPosting(term, docID, field))
		}
		norms[i] = math.Sqrt(float64(len(terms)))
	}

	rows = append(rows, index.NewDocInfo(docID, norms))
	return rows, true
}
