// Package search answers queries against a built index: it plans the
// posting lookups, scores candidates with a dismax variant of TF-IDF cosine
// similarity, applies minimum-should-match and pagination, and enriches the
// resulting page with documents and highlights.
package search

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/gcbaptista/quicksearch/index"
	"github.com/gcbaptista/quicksearch/internal/logging"
	"github.com/gcbaptista/quicksearch/internal/tokenizer"
	"github.com/gcbaptista/quicksearch/model"
	"github.com/gcbaptista/quicksearch/services"
)

// Query is one search against an index identity.
type Query struct {
	Identity     string
	Text         string
	Fields       []model.FieldBoost // posting order of the index
	Tokenizer    *tokenizer.Tokenizer
	MinimumMatch float64 // fraction of query terms a document must hold; NaN disables the check
	Limit        int     // negative means no limit
	Skip         int
}

// Matches records, per candidate document, how often each query term
// occurs in each field.
type Matches struct {
	Terms []string                    // distinct query terms in query order
	Docs  map[string][]map[string]int // document id -> field index -> term -> count
}

// FieldTerms returns the query terms found in field i of docID, in query order.
func (m *Matches) FieldTerms(docID string, i int) []string {
	fields, ok := m.Docs[docID]
	if !ok || i < 0 || i >= len(fields) {
		return nil
	}
	terms := make([]string, 0, len(fields[i]))
	for _, term := range m.Terms {
		if fields[i][term] > 0 {
			terms = append(terms, term)
		}
	}
	return terms
}

func newMatches(terms []string) *Matches {
	return &Matches{Terms: terms, Docs: make(map[string][]map[string]int)}
}

// Service runs queries against an index store.
type Service struct {
	views     services.IndexStore
	documents services.DocumentReader
	logger    *zap.Logger
}

// NewService creates a new search Service.
func NewService(views services.IndexStore, documents services.DocumentReader, logger *zap.Logger) (*Service, error) {
	if views == nil {
		return nil, fmt.Errorf("index store cannot be nil")
	}
	if documents == nil {
		return nil, fmt.Errorf("document reader cannot be nil")
	}
	return &Service{views: views, documents: documents, logger: logging.OrNop(logger)}, nil
}

// Search returns the requested page of scored results, best first, and the
// matched terms of every candidate. Store errors are returned unchanged.
func (s *Service) Search(ctx context.Context, q Query) ([]model.ScoredResult, *Matches, error) {
	if q.Tokenizer == nil {
		return nil, nil, fmt.Errorf("tokenizer cannot be nil")
	}

	// repeating a term in the query must not change the scores
	terms := q.Tokenizer.Unique(q.Text)
	matches := newMatches(terms)
	if len(terms) == 0 {
		return []model.ScoredResult{}, matches, nil
	}

	keys := make([]string, len(terms))
	for i, term := range terms {
		keys[i] = index.PostingKey(term)
	}
	rows, err := s.views.QueryPostings(ctx, q.Identity, keys)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return []model.ScoredResult{}, matches, nil
	}

	termDF, order := s.collect(rows, len(q.Fields), matches)

	if len(terms) > 1 {
		order = applyMinimumMatch(order, matches, len(terms), q.MinimumMatch)
	}
	if len(order) == 0 {
		return []model.ScoredResult{}, matches, nil
	}

	norms, err := s.fetchNorms(ctx, q.Identity, order)
	if err != nil {
		return nil, nil, err
	}

	results := make([]model.ScoredResult, len(order))
	for i, docID := range order {
		results[i] = model.ScoredResult{
			ID:    docID,
			Score: score(terms, termDF, matches.Docs[docID], norms[docID], q.Fields),
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return Paginate(results, q.Skip, q.Limit), matches, nil
}

// collect counts rows per term (the term's document frequency) and term
// occurrences per document and field. Documents are returned in the order
// they first appear.
func (s *Service) collect(rows []index.Row, numFields int, matches *Matches) (map[string]int, []string) {
	termDF := make(map[string]int)
	order := make([]string, 0)

	for _, row := range rows {
		term := row.Term()
		termDF[term]++

		field := row.Field
		if !row.HasField() {
			field = 0
		}
		if field < 0 || field >= numFields {
			s.logger.Debug("ignoring posting with unknown field",
				zap.String("doc_id", row.ID), zap.Int("field", row.Field))
			continue
		}

		fields, ok := matches.Docs[row.ID]
		if !ok {
			fields = make([]map[string]int, numFields)
			for i := range fields {
				fields[i] = make(map[string]int)
			}
			matches.Docs[row.ID] = fields
			order = append(order, row.ID)
		}
		fields[field][term]++
	}
	return termDF, order
}

// applyMinimumMatch drops documents holding too small a share of the query
// terms. The share is truncated to two decimals before comparing.
func applyMinimumMatch(order []string, matches *Matches, numTerms int, minimumMatch float64) []string {
	kept := order[:0]
	for _, docID := range order {
		matched := make(map[string]struct{})
		for _, fieldTerms := range matches.Docs[docID] {
			for term := range fieldTerms {
				matched[term] = struct{}{}
			}
		}
		ratio := float64(len(matched)) / float64(numTerms)
		// NaN compares false, so an unparseable minimum keeps everything
		if math.Floor(ratio*100)/100 < minimumMatch {
			delete(matches.Docs, docID)
			continue
		}
		kept = append(kept, docID)
	}
	return kept
}

func (s *Service) fetchNorms(ctx context.Context, identity string, docIDs []string) (map[string][]float64, error) {
	keys := make([]string, len(docIDs))
	for i, docID := range docIDs {
		keys[i] = index.DocInfoKey(docID)
	}
	rows, err := s.views.QueryPostings(ctx, identity, keys)
	if err != nil {
		return nil, err
	}

	norms := make(map[string][]float64, len(rows))
	for _, row := range rows {
		norms[row.ID] = row.Norms
	}
	if len(norms) < len(docIDs) {
		s.logger.Debug("missing field norms for some candidates",
			zap.String("index", identity), zap.Int("candidates", len(docIDs)), zap.Int("norms", len(norms)))
	}
	return norms, nil
}

// score is the dismax combination: for each query term the boosted TF-IDF
// contributions of all fields are summed, and the document keeps the best
// term's sum. A zero or missing norm contributes nothing.
func score(terms []string, termDF map[string]int, fields []map[string]int, norms []float64, fieldBoosts []model.FieldBoost) float64 {
	best := 0.0
	for _, term := range terms {
		df := float64(termDF[term])
		sum := 0.0
		for i, counts := range fields {
			tf, ok := counts[term]
			if !ok || i >= len(norms) || norms[i] == 0 {
				continue
			}
			docScore := float64(tf) / df
			queryScore := 1 / df
			sum += docScore * queryScore * fieldBoosts[i].Boost / norms[i]
		}
		if sum > best {
			best = sum
		}
	}
	return best
}

// Paginate returns results[skip:skip+limit]. A negative limit returns
// everything after skip. Bounds are clamped to the slice.
func Paginate(results []model.ScoredResult, skip, limit int) []model.ScoredResult {
	if skip < 0 {
		skip = 0
	}
	if skip > len(results) {
		skip = len(results)
	}
	end := len(results)
	if limit >= 0 && skip+limit < end {
		end = skip + limit
	}
	return results[skip:end]
}

var leadingNumber = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ParseMinimumMatch converts an mm value such as "75%" or "50" to a fraction.
// A nil value means every term must match (1.0). Only the leading number is
// read; a value without one yields NaN, which disables the check.
func ParseMinimumMatch(raw *string) float64 {
	if raw == nil {
		return 1
	}
	return parseLeadingFloat(*raw) / 100
}

func parseLeadingFloat(s string) float64 {
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\ufeff'
	})
	m := leadingNumber.FindString(s)
	switch m {
	case "":
		return math.NaN()
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	// out of range literals saturate to ±Inf
	f, _ := strconv.ParseFloat(m, 64)
	return f
}
