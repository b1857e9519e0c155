package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gcbaptista/quicksearch/internal/persistence"
	"github.com/gcbaptista/quicksearch/store"
)

const (
	dataDirPerm       = 0755
	documentStoreFile = "documents.gob"
	viewsDir          = "views"
)

// loadDocuments reads the document snapshot from the data directory. A
// missing snapshot starts an empty store; a corrupt one is an error, since
// persisted indexes would otherwise claim changes the store no longer has.
func (e *Engine) loadDocuments() (*store.DocumentStore, error) {
	if e.dataDir == "" {
		return store.NewDocumentStore(), nil
	}

	path := filepath.Join(e.dataDir, documentStoreFile)
	docStore := store.NewDocumentStore()
	err := persistence.LoadGob(path, docStore)
	switch {
	case errors.Is(err, os.ErrNotExist):
		e.logger.Info("no document snapshot found, starting empty", zap.String("path", path))
		return store.NewDocumentStore(), nil
	case err != nil:
		return nil, fmt.Errorf("failed to load documents from %s: %w", path, err)
	}

	e.logger.Info("loaded documents",
		zap.String("path", path), zap.Int("count", docStore.Count()), zap.Uint64("update_seq", docStore.UpdateSeq()))
	return docStore, nil
}

// persistDocuments snapshots the document store. It is a no-op without a
// data directory.
func (e *Engine) persistDocuments() error {
	if e.dataDir == "" {
		return nil
	}
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	path := filepath.Join(e.dataDir, documentStoreFile)
	if err := persistence.SaveGob(path, e.documents); err != nil {
		return fmt.Errorf("failed to save documents: %w", err)
	}
	return nil
}
