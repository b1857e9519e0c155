package viewstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gcbaptista/quicksearch/config"
	"github.com/gcbaptista/quicksearch/services"
)

// Store is an index store with lifecycle management.
type Store interface {
	services.IndexStore
	Identities(ctx context.Context) ([]string, error)
	Persist() error
	Close() error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLite)(nil)
)

// Open creates the store selected by backend: "memory" snapshots views under
// viewDir, "sqlite" opens sqlitePath.
func Open(backend, viewDir, sqlitePath string, logger *zap.Logger) (Store, error) {
	switch backend {
	case config.BackendMemory, "":
		return NewMemory(viewDir, logger)
	case config.BackendSQLite:
		return NewSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown index store backend %q", backend)
	}
}
