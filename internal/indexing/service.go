// Package indexing builds and incrementally refreshes the inverted index of
// an identity from the document store's changes feed.
package indexing

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gcbaptista/quicksearch/index"
	"github.com/gcbaptista/quicksearch/internal/logging"
	"github.com/gcbaptista/quicksearch/services"
	"github.com/gcbaptista/quicksearch/store"
)

// DefaultBatchSize is the number of changes applied per store transaction.
const DefaultBatchSize = 500

// RefreshStats summarizes one refresh.
type RefreshStats struct {
	Changes    int    `json:"changes"`    // changes read from the feed
	Indexed    int    `json:"indexed"`    // documents that produced rows
	Excluded   int    `json:"excluded"`   // documents rejected by the filter
	Deleted    int    `json:"deleted"`    // deletions applied
	Checkpoint uint64 `json:"checkpoint"` // sequence the index is now current to
}

// Service brings index identities up to date with the document store.
type Service struct {
	documents services.DocumentStore
	views     services.IndexStore
	batchSize int
	workers   int
	group     singleflight.Group
	logger    *zap.Logger
}

// NewService creates a refresh service. A non-positive batchSize selects
// DefaultBatchSize.
func NewService(documents services.DocumentStore, views services.IndexStore, batchSize int, logger *zap.Logger) (*Service, error) {
	if documents == nil {
		return nil, fmt.Errorf("document store cannot be nil")
	}
	if views == nil {
		return nil, fmt.Errorf("index store cannot be nil")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		documents: documents,
		views:     views,
		batchSize: batchSize,
		workers:   runtime.GOMAXPROCS(0),
		logger:    logging.OrNop(logger),
	}, nil
}

// Refresh applies every change since the identity's checkpoint. Concurrent
// refreshes of one identity share a single run, driven by the first caller's
// context.
func (s *Service) Refresh(ctx context.Context, identity string, builder *Builder) (RefreshStats, error) {
	v, err, shared := s.group.Do(identity, func() (interface{}, error) {
		return s.refresh(ctx, identity, builder)
	})
	if shared {
		s.logger.Debug("joined in-flight refresh", zap.String("index", identity))
	}
	stats, _ := v.(RefreshStats)
	return stats, err
}

func (s *Service) refresh(ctx context.Context, identity string, builder *Builder) (RefreshStats, error) {
	var stats RefreshStats

	since, err := s.views.Checkpoint(ctx, identity)
	if err != nil {
		return stats, fmt.Errorf("failed to read checkpoint of %s: %w", identity, err)
	}
	stats.Checkpoint = since

	for {
		changes, next, err := s.documents.Changes(ctx, since, s.batchSize)
		if err != nil {
			return stats, fmt.Errorf("failed to read changes since %d: %w", since, err)
		}
		if len(changes) == 0 && next <= since {
			break
		}

		batch, err := s.buildBatch(ctx, changes, builder, &stats)
		if err != nil {
			return stats, err
		}
		if err := s.views.UpsertPostings(ctx, identity, batch, next); err != nil {
			return stats, fmt.Errorf("failed to write index rows of %s: %w", identity, err)
		}

		stats.Changes += len(changes)
		stats.Checkpoint = next
		since = next
		if len(changes) < s.batchSize {
			break
		}
	}

	if stats.Changes > 0 {
		s.logger.Info("index refreshed",
			zap.String("index", identity),
			zap.Int("changes", stats.Changes),
			zap.Int("indexed", stats.Indexed),
			zap.Int("excluded", stats.Excluded),
			zap.Int("deleted", stats.Deleted),
			zap.Uint64("checkpoint", stats.Checkpoint),
		)
	}
	return stats, nil
}

// buildBatch tokenizes the changed documents in parallel. Rows keep the
// order of the changes.
func (s *Service) buildBatch(ctx context.Context, changes []store.Change, builder *Builder, stats *RefreshStats) ([]index.DocRows, error) {
	batch := make([]index.DocRows, len(changes))
	included := make([]bool, len(changes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, change := range changes {
		batch[i].ID = change.ID
		if change.Deleted {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch[i].Rows, included[i] = builder.Build(change.Doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, change := range changes {
		switch {
		case change.Deleted:
			stats.Deleted++
		case included[i]:
			stats.Indexed++
		default:
			stats.Excluded++
		}
	}
	return batch, nil
}
