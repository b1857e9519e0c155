package engine

import (
	"context"

	"go.uber.org/zap"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/model"
)

// PutDocuments upserts docs by "_id" and returns the store's update sequence.
// Indexes pick the changes up on their next refresh.
func (e *Engine) PutDocuments(ctx context.Context, docs []model.Document) (uint64, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, internalErrors.NewValidationError("documents", "at least one document is required")
	}

	seq, err := e.documents.PutAll(ctx, docs)
	if err != nil {
		return 0, err
	}
	if err := e.persistDocuments(); err != nil {
		return 0, err
	}
	e.logger.Debug("documents stored", zap.Int("count", len(docs)), zap.Uint64("update_seq", seq))
	return seq, nil
}

// GetDocument returns a stored document.
func (e *Engine) GetDocument(ctx context.Context, id string) (model.Document, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.documents.Get(ctx, id)
}

// DeleteDocument removes a document; indexes drop its rows on refresh.
func (e *Engine) DeleteDocument(ctx context.Context, id string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	seq, err := e.documents.Delete(ctx, id)
	if err != nil {
		return err
	}
	if err := e.persistDocuments(); err != nil {
		return err
	}
	e.logger.Debug("document deleted", zap.String("doc_id", id), zap.Uint64("update_seq", seq))
	return nil
}

// ListDocuments returns a page of documents ordered by id and the total count.
func (e *Engine) ListDocuments(ctx context.Context, offset, limit int) ([]model.Document, int, error) {
	if err := e.checkOpen(); err != nil {
		return nil, 0, err
	}
	return e.documents.List(ctx, offset, limit)
}
