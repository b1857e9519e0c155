package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/quicksearch/model"
)

// maxConcurrentFetches bounds document fetches per enrichment call.
const maxConcurrentFetches = 16

// IncludeDocs attaches the stored document to every result. Any fetch error
// fails the whole call and leaves results without documents.
func (s *Service) IncludeDocs(ctx context.Context, results []model.ScoredResult) error {
	docs, err := s.fetchDocs(ctx, results, false)
	if err != nil {
		return err
	}
	for i := range results {
		results[i].Doc = docs[i]
	}
	return nil
}

// fetchDocs loads the document of every result concurrently. With
// reuseAttached, results that already carry a document are not fetched.
func (s *Service) fetchDocs(ctx context.Context, results []model.ScoredResult, reuseAttached bool) ([]model.Document, error) {
	docs := make([]model.Document, len(results))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, result := range results {
		if reuseAttached && result.Doc != nil {
			docs[i] = result.Doc
			continue
		}
		g.Go(func() error {
			doc, err := s.documents.Get(ctx, result.ID)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
