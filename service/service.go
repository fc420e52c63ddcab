package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gitlabanalyzer/analyzer"
	"gitlabanalyzer/api"
	"gitlabanalyzer/config"
	"gitlabanalyzer/db"
	"gitlabanalyzer/gitlab"
	"gitlabanalyzer/logger"
	"gitlabanalyzer/project"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// SyncJob is a submitted project sync
type SyncJob interface {
	Wait(ctx context.Context) error
}

// Refresher resubmits the sync of every known project
// (for testability)
type Refresher interface {
	Refresh() []SyncJob
}

// StatsSource reports the number of stored documents per collection
// (for testability)
type StatsSource interface {
	CollectionStats(ctx context.Context) (map[string]int, error)
}

// Service errors
var (
	ErrServiceInit     = fmt.Errorf("service initialization error")
	ErrServiceShutdown = fmt.Errorf("service shutdown error")
)

type analyzerRefresher struct {
	analyzer *analyzer.Analyzer
}

func (r analyzerRefresher) Refresh() []SyncJob {
	jobs := r.analyzer.RefreshAll()
	out := make([]SyncJob, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job)
	}
	return out
}

// Service represents the main application service
type Service struct {
	config   *config.Config
	database *db.DB
	analyzer *analyzer.Analyzer
	server   *http.Server
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewService creates a new service instance. A non-empty logLevel overrides the
// configured one.
func NewService(envFile, logLevel string) (*Service, error) {
	cfg := config.NewConfig()
	if err := cfg.Load(envFile); err != nil {
		return nil, fmt.Errorf("%w: failed to load configuration: %v", ErrServiceInit, err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize logger: %v", ErrServiceInit, err)
	}

	if err := db.Migrate(db.URL(cfg.Database)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceInit, err)
	}

	database, err := db.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize database: %v", ErrServiceInit, err)
	}

	auth := gitlab.NewAuthenticator()
	a, err := analyzer.New(
		analyzer.AuthenticatorFunc(func(ctx context.Context, token, url string) (analyzer.Session, error) {
			session, err := auth.Authenticate(ctx, token, url)
			if err != nil {
				return nil, err
			}
			return session, nil
		}),
		analyzer.WithWorkers(cfg.SyncWorkers),
		analyzer.WithPersister(db.NewMapper(database)),
		analyzer.WithProjectOptions(
			project.WithMergeRequestState(cfg.MergeRequestState),
			project.WithDiffConcurrency(cfg.DiffConcurrency),
		),
	)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to create analyzer: %v", ErrServiceInit, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	logger.Info("Service initialized successfully",
		zap.String("gitlab_url", cfg.GitLabURL),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Int("sync_workers", cfg.SyncWorkers),
		zap.Duration("sync_interval", cfg.SyncInterval))

	return &Service{
		config:   cfg,
		database: database,
		analyzer: a,
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewRouter(a, cfg.GitLabURL),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start serves the API and runs the periodic refresh until a shutdown signal
func (s *Service) Start() error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.config.SyncInterval > 0 {
		s.startMonitoring()
	}

	return s.waitForShutdown(errCh)
}

// startMonitoring resyncs every known project on each tick
func (s *Service) startMonitoring() {
	logger.Info("Starting project monitoring",
		zap.Duration("sync_interval", s.config.SyncInterval))

	refresher := analyzerRefresher{analyzer: s.analyzer}
	go func() {
		ticker := time.NewTicker(s.config.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := refreshProjects(s.ctx, refresher, s.database); err != nil {
					logger.Warn("Error refreshing projects", zap.Error(err))
				}
			}
		}
	}()
}

// waitForShutdown waits for the shutdown signal or a server failure
func (s *Service) waitForShutdown(errCh <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		s.cancel()
		return nil
	case err := <-errCh:
		logger.Error("HTTP server failed", zap.Error(err))
		s.cancel()
		return fmt.Errorf("http server failed: %w", err)
	case <-s.ctx.Done():
		return nil
	}
}

// Close performs cleanup operations
func (s *Service) Close() error {
	logger.Info("Closing service")
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := multierr.Combine(
		s.server.Shutdown(ctx),
		s.analyzer.Close(),
		s.database.Close(),
	)
	logger.Sync()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceShutdown, err)
	}
	return nil
}

// refreshProjects resubmits every known project, waits for the syncs and logs
// the stored collection sizes.
func refreshProjects(ctx context.Context, refresher Refresher, stats StatsSource) error {
	if ctx.Err() != nil {
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	}

	jobs := refresher.Refresh()
	logger.Info("Refreshing projects", zap.Int("project_count", len(jobs)))

	var errs error
	for _, job := range jobs {
		errs = multierr.Append(errs, job.Wait(ctx))
	}

	counts, err := stats.CollectionStats(ctx)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to collect stats: %w", err))
	} else {
		fields := make([]zap.Field, 0, len(counts))
		for name, n := range counts {
			fields = append(fields, zap.Int(name, n))
		}
		logger.Info("Collection sizes", fields...)
	}

	if errs != nil {
		logger.Warn("Some project syncs failed",
			zap.Int("failed", len(multierr.Errors(errs))),
			zap.Int("project_count", len(jobs)))
	}
	return errs
}
