// Package viewstore persists index rows per identity. Memory keeps views in
// process and snapshots them with gob; SQLite keeps them in a database file.
package viewstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/gcbaptista/quicksearch/index"
	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/internal/identity"
	"github.com/gcbaptista/quicksearch/internal/logging"
	"github.com/gcbaptista/quicksearch/internal/persistence"
)

const viewFileExt = ".gob"

// Memory is an in-memory index store. When dir is set, Persist writes one
// gob snapshot per identity and NewMemory loads them back.
type Memory struct {
	mu     sync.RWMutex
	views  map[string]*index.View
	dir    string
	closed bool
	logger *zap.Logger
}

// NewMemory creates a store, loading any snapshots found in dir. An empty
// dir keeps everything in memory only.
func NewMemory(dir string, logger *zap.Logger) (*Memory, error) {
	m := &Memory{
		views:  make(map[string]*index.View),
		dir:    dir,
		logger: logging.OrNop(logger),
	}
	if dir == "" {
		return m, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, fmt.Errorf("failed to read view directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), viewFileExt)
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), viewFileExt) || !identity.Valid(name) {
			continue
		}
		view := index.NewView()
		if err := persistence.LoadGob(filepath.Join(dir, entry.Name()), view); err != nil {
			m.logger.Warn("skipping unreadable view snapshot", zap.String("identity", name), zap.Error(err))
			continue
		}
		m.views[name] = view
	}
	m.logger.Info("loaded view snapshots", zap.Int("count", len(m.views)), zap.String("dir", dir))
	return m, nil
}

func (m *Memory) view(identity string, create bool) (*index.View, error) {
	if create {
		m.mu.Lock()
		defer m.mu.Unlock()
	} else {
		m.mu.RLock()
		defer m.mu.RUnlock()
	}
	if m.closed {
		return nil, internalErrors.ErrStoreClosed
	}
	v, ok := m.views[identity]
	if !ok && create {
		v = index.NewView()
		m.views[identity] = v
	}
	return v, nil
}

// UpsertPostings replaces the rows of every document in batch.
func (m *Memory) UpsertPostings(ctx context.Context, identity string, batch []index.DocRows, checkpoint uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := m.view(identity, true)
	if err != nil {
		return err
	}
	v.Apply(batch, checkpoint)
	return nil
}

// QueryPostings returns the rows under keys. An unknown identity has no rows.
func (m *Memory) QueryPostings(ctx context.Context, identity string, keys []string) ([]index.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := m.view(identity, false)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return []index.Row{}, nil
	}
	return v.Query(keys), nil
}

// Checkpoint returns the last applied change sequence, 0 for unknown identities.
func (m *Memory) Checkpoint(ctx context.Context, identity string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, err := m.view(identity, false)
	if err != nil || v == nil {
		return 0, err
	}
	return v.CurrentCheckpoint(), nil
}

// Destroy drops the view and its snapshot.
func (m *Memory) Destroy(ctx context.Context, identity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return internalErrors.ErrStoreClosed
	}
	delete(m.views, identity)
	if m.dir == "" {
		return nil
	}
	return persistence.Remove(m.snapshotPath(identity))
}

// Identities lists the stored index identities in sorted order.
func (m *Memory) Identities(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.views))
	for name := range m.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Persist snapshots every view to disk. It is a no-op without a directory.
func (m *Memory) Persist() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dir == "" {
		return nil
	}
	for name, v := range m.views {
		if err := persistence.SaveGob(m.snapshotPath(name), v); err != nil {
			return fmt.Errorf("failed to persist view %s: %w", name, err)
		}
	}
	return nil
}

// Close persists the views and rejects further use.
func (m *Memory) Close() error {
	if err := m.Persist(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) snapshotPath(identity string) string {
	return filepath.Join(m.dir, identity+viewFileExt)
}
