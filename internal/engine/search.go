package engine

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/internal/search"
	"github.com/gcbaptista/quicksearch/model"
	"github.com/gcbaptista/quicksearch/services"
)

// Search runs one request against the index its fields, language and filter
// select. Destroy drops that index and Build brings it up to date; both
// answer {ok:true}. Otherwise the index is refreshed according to Stale and
// queried, and {rows:[...]} is returned.
func (e *Engine) Search(ctx context.Context, opts services.SearchOptions) (*model.SearchResponse, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateStale(opts.Stale); err != nil {
		return nil, err
	}

	instance, err := e.newIndexInstance(opts.Language, opts.Fields, opts.Filter)
	if err != nil {
		return nil, err
	}

	switch {
	case opts.Destroy:
		if err := e.destroyIndex(ctx, instance.identity); err != nil {
			return nil, err
		}
		return &model.SearchResponse{OK: true}, nil
	case opts.Build:
		if _, err := e.refresh(ctx, instance); err != nil {
			return nil, err
		}
		return &model.SearchResponse{OK: true}, nil
	}

	// a query without terms never touches the index
	if len(instance.tokenizer.Unique(opts.Query)) == 0 {
		return &model.SearchResponse{Rows: []model.ScoredResult{}}, nil
	}

	if opts.Stale == services.StaleNone {
		if _, err := e.refresh(ctx, instance); err != nil {
			return nil, err
		}
	}

	mm := search.ParseMinimumMatch(opts.MinimumMatch)
	if math.IsNaN(mm) {
		e.logger.Warn("unparseable mm, minimum-match filtering disabled", zap.String("mm", *opts.MinimumMatch))
	}
	limit := -1
	if opts.Limit != nil && *opts.Limit >= 0 {
		limit = *opts.Limit
	}

	results, matches, err := e.searcher.Search(ctx, search.Query{
		Identity:     instance.identity,
		Text:         opts.Query,
		Fields:       instance.settings.Fields,
		Tokenizer:    instance.tokenizer,
		MinimumMatch: mm,
		Limit:        limit,
		Skip:         opts.Skip,
	})
	if err != nil {
		return nil, err
	}

	if opts.IncludeDocs {
		if err := e.searcher.IncludeDocs(ctx, results); err != nil {
			return nil, err
		}
	}
	if opts.Highlighting {
		err := e.searcher.Highlight(ctx, results, instance.settings.Fields, matches, opts.HighlightingPre, opts.HighlightingPost)
		if err != nil {
			return nil, err
		}
	}

	if opts.Stale == services.StaleUpdateAfter {
		if _, err := e.scheduleRefresh(instance); err != nil {
			e.logger.Warn("failed to schedule index refresh", zap.String("index", instance.identity), zap.Error(err))
		}
	}

	return &model.SearchResponse{Rows: results}, nil
}

func validateStale(stale string) error {
	switch stale {
	case services.StaleNone, services.StaleOK, services.StaleUpdateAfter:
		return nil
	default:
		return internalErrors.NewValidationError("stale",
			fmt.Sprintf("must be %q or %q, got %q", services.StaleOK, services.StaleUpdateAfter, stale))
	}
}
