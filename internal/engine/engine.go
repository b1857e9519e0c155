// Package engine wires the document store, the index stores, the tokenizer
// registry and the background job manager into the search operation exposed
// to callers.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/gcbaptista/quicksearch/config"
	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/internal/indexing"
	"github.com/gcbaptista/quicksearch/internal/jobs"
	"github.com/gcbaptista/quicksearch/internal/logging"
	"github.com/gcbaptista/quicksearch/internal/search"
	"github.com/gcbaptista/quicksearch/internal/tokenizer"
	"github.com/gcbaptista/quicksearch/internal/viewstore"
	"github.com/gcbaptista/quicksearch/model"
	"github.com/gcbaptista/quicksearch/services"
	"github.com/gcbaptista/quicksearch/store"
)

var _ services.SearchEngine = (*Engine)(nil)

// Engine answers searches over the documents it stores.
// It implements the services.SearchEngine interface.
type Engine struct {
	mu        sync.RWMutex // guards closed
	closed    bool
	persistMu sync.Mutex // orders document snapshots

	dataDir         string
	defaultLanguage string

	documents  *store.DocumentStore
	views      viewstore.Store
	tokenizers *tokenizer.Registry
	indexer    *indexing.Service
	searcher   *search.Service
	jobManager *jobs.Manager
	logger     *zap.Logger
}

// NewEngine opens the stores under cfg.Storage and starts the job manager.
// An empty data directory keeps everything in memory.
func NewEngine(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger = logging.OrNop(logger)

	e := &Engine{
		dataDir:         cfg.Storage.DataDir,
		defaultLanguage: cfg.Search.DefaultLanguage,
		logger:          logger,
	}
	if e.defaultLanguage == "" {
		e.defaultLanguage = tokenizer.DefaultLanguage
	}

	viewDir := ""
	if e.dataDir != "" {
		if err := os.MkdirAll(e.dataDir, dataDirPerm); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", e.dataDir, err)
		}
		viewDir = filepath.Join(e.dataDir, viewsDir)
	}

	documents, err := e.loadDocuments()
	if err != nil {
		return nil, err
	}
	e.documents = documents

	tokenizers, err := tokenizer.NewRegistry(cfg.Search.TokenizerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer registry: %w", err)
	}
	e.tokenizers = tokenizers
	if !tokenizers.Supported(e.defaultLanguage) {
		return nil, internalErrors.NewUnsupportedLanguageError(e.defaultLanguage)
	}

	views, err := viewstore.Open(cfg.Storage.IndexBackend, viewDir, cfg.Storage.SQLitePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}
	e.views = views

	e.indexer, err = indexing.NewService(documents, views, cfg.Search.RefreshBatchSize, logger)
	if err != nil {
		_ = views.Close()
		return nil, err
	}
	e.searcher, err = search.NewService(views, documents, logger)
	if err != nil {
		_ = views.Close()
		return nil, err
	}

	e.jobManager = jobs.NewManager(cfg.Jobs.Workers, logger)
	e.jobManager.Start()

	logger.Info("engine started",
		zap.String("data_dir", e.dataDir),
		zap.String("index_backend", cfg.Storage.IndexBackend),
		zap.Int("documents", documents.Count()),
	)
	return e, nil
}

// checkOpen returns ErrStoreClosed once Close has been called.
func (e *Engine) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return internalErrors.ErrStoreClosed
	}
	return nil
}

// Persist writes the documents and the index views to the data directory.
func (e *Engine) Persist() error {
	if err := e.persistDocuments(); err != nil {
		return err
	}
	if err := e.views.Persist(); err != nil {
		return fmt.Errorf("failed to persist index views: %w", err)
	}
	return nil
}

// Close stops background jobs, persists everything and closes the stores.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.jobManager.Stop()

	if err := e.persistDocuments(); err != nil {
		e.logger.Error("failed to persist documents on close", zap.Error(err))
	}
	if err := e.views.Close(); err != nil {
		return fmt.Errorf("failed to close index store: %w", err)
	}
	e.logger.Info("engine stopped")
	return nil
}

// GetJob retrieves a background job by ID.
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs lists the jobs of an index identity, optionally by status.
func (e *Engine) ListJobs(index string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(index, status)
}

// WaitJob blocks until the job finishes or ctx is done.
func (e *Engine) WaitJob(ctx context.Context, jobID string) (*model.Job, error) {
	return e.jobManager.Wait(ctx, jobID)
}

// JobMetrics returns the job manager counters.
func (e *Engine) JobMetrics() jobs.MetricsSnapshot {
	return e.jobManager.Metrics()
}
