package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gcbaptista/quicksearch/api"
	"github.com/gcbaptista/quicksearch/config"
	"github.com/gcbaptista/quicksearch/internal/analytics"
	"github.com/gcbaptista/quicksearch/internal/engine"
	"github.com/gcbaptista/quicksearch/internal/logging"
)

const (
	shutdownTimeout = 10 * time.Second
	sqliteFile      = "indexes.db"
)

type serveOptions struct {
	configPath string
	host       string
	port       int
	dataDir    string
	backend    string
	language   string
	workers    int
	debug      bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search server",
		Example: `  quicksearch serve
  quicksearch serve --port 9000 --data-dir /tmp/search
  quicksearch serve --config quicksearch.yaml --backend sqlite`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	bindServeFlags(cmd, &opts)

	return cmd
}

func bindServeFlags(cmd *cobra.Command, opts *serveOptions) {
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&opts.host, "host", "", "Interface to listen on")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory for documents and indexes")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Index store backend (memory or sqlite)")
	cmd.Flags().StringVar(&opts.language, "language", "", "Default analyzer language")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Background job workers")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
}

// loadConfig reads the config file when one is given and lets explicitly
// set flags override it.
func loadConfig(cmd *cobra.Command, opts serveOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("data-dir") {
		// a database path derived from the data dir moves with it
		derived := filepath.Clean(cfg.Storage.SQLitePath) == filepath.Join(cfg.Storage.DataDir, sqliteFile)
		cfg.Storage.DataDir = opts.dataDir
		if derived {
			cfg.Storage.SQLitePath = filepath.Join(opts.dataDir, sqliteFile)
		}
	}
	if flags.Changed("backend") {
		cfg.Storage.IndexBackend = opts.backend
	}
	if flags.Changed("language") {
		cfg.Search.DefaultLanguage = opts.language
	}
	if flags.Changed("workers") {
		cfg.Jobs.Workers = opts.workers
	}
	if flags.Changed("debug") {
		cfg.Debug = opts.debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// server bundles the HTTP server with what must be closed after it.
type server struct {
	http      *http.Server
	engine    *engine.Engine
	analytics *analytics.Service
}

// close flushes analytics and closes the engine.
func (s *server) close() error {
	analyticsErr := s.analytics.Save()
	if err := s.engine.Close(); err != nil {
		return fmt.Errorf("failed to close engine: %w", err)
	}
	if analyticsErr != nil {
		return fmt.Errorf("failed to save analytics: %w", analyticsErr)
	}
	return nil
}

// newServer wires the engine into a gin router.
func newServer(cfg *config.Config, logger *zap.Logger) (*server, error) {
	eng, err := engine.NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	tracker := analytics.NewService(eng, filepath.Join(cfg.Storage.DataDir, analytics.DataFile), logger)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(logger),
		api.CORSMiddleware(),
		api.RequestSizeLimitMiddleware(cfg.Server.MaxRequestBytes),
	)
	api.SetupRoutes(router, eng, tracker, logger)

	return &server{
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine:    eng,
		analytics: tracker,
	}, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.http.Addr),
			zap.String("data_dir", cfg.Storage.DataDir),
			zap.String("index_backend", cfg.Storage.IndexBackend))
		serveErr <- srv.http.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = srv.close()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.http.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	if err := srv.close(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
