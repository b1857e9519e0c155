package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/internal/identity"
	"github.com/gcbaptista/quicksearch/internal/indexing"
	"github.com/gcbaptista/quicksearch/model"
)

// refresh applies pending document changes to the instance's index.
func (e *Engine) refresh(ctx context.Context, instance *indexInstance) (indexing.RefreshStats, error) {
	return e.indexer.Refresh(ctx, instance.identity, instance.builder)
}

func (e *Engine) destroyIndex(ctx context.Context, name string) error {
	if err := e.views.Destroy(ctx, name); err != nil {
		return fmt.Errorf("failed to destroy index %s: %w", name, err)
	}
	e.logger.Info("index destroyed", zap.String("index", name))
	return nil
}

// Indexes lists the persisted indexes and how far behind the documents each is.
func (e *Engine) Indexes(ctx context.Context) ([]model.IndexInfo, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	names, err := e.views.Identities(ctx)
	if err != nil {
		return nil, err
	}

	updateSeq := e.documents.UpdateSeq()
	infos := make([]model.IndexInfo, 0, len(names))
	for _, name := range names {
		checkpoint, err := e.views.Checkpoint(ctx, name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, model.IndexInfo{
			Identity:   name,
			Checkpoint: checkpoint,
			UpdateSeq:  updateSeq,
			Stale:      checkpoint < updateSeq,
		})
	}
	return infos, nil
}

// DestroyIndex drops a persisted index by identity. Unknown identities are
// not an error.
func (e *Engine) DestroyIndex(ctx context.Context, name string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if !identity.Valid(name) {
		return internalErrors.NewValidationError("index", fmt.Sprintf("'%s' is not an index identity", name))
	}
	return e.destroyIndex(ctx, name)
}
