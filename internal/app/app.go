// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcsstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/billboard-charts/internal/archive"
	"github.com/JakeFAU/billboard-charts/internal/chart"
	"github.com/JakeFAU/billboard-charts/internal/clock/system"
	"github.com/JakeFAU/billboard-charts/internal/config"
	"github.com/JakeFAU/billboard-charts/internal/extract"
	collyfetcher "github.com/JakeFAU/billboard-charts/internal/fetcher/colly"
	"github.com/JakeFAU/billboard-charts/internal/logging"
	"github.com/JakeFAU/billboard-charts/internal/metrics"
	pubsubpublisher "github.com/JakeFAU/billboard-charts/internal/publisher/pubsub"
	"github.com/JakeFAU/billboard-charts/internal/scraper"
	"github.com/JakeFAU/billboard-charts/internal/storage"
	"github.com/JakeFAU/billboard-charts/internal/storage/gcs"
	"github.com/JakeFAU/billboard-charts/internal/storage/local"
	"github.com/JakeFAU/billboard-charts/internal/storage/postgres"
	"github.com/JakeFAU/billboard-charts/internal/store"
	"github.com/JakeFAU/billboard-charts/internal/updater"
)

// App holds the shared services of one command invocation.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	blobs     storage.BlobStore
	backend   store.Backend
	publisher chart.Publisher
	metrics   *metrics.Server
	closers   []func() error
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Blobs exposes the configured blob store.
func (a *App) Blobs() storage.BlobStore {
	return a.blobs
}

// Backend exposes the chart store backend.
func (a *App) Backend() store.Backend {
	return a.backend
}

// New builds blob storage, the chart store backend and the optional
// publisher from cfg. It fails fast if any configured service cannot start.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	logger.Info("initializing application services", zap.String("storage_provider", cfg.Storage.Provider))

	if err := a.initStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initPublisher(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.Storage.Provider {
	case config.ProviderGCS:
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		blobs, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return fmt.Errorf("init gcs storage: %w", err)
		}
		a.logger.Info("using gcs storage", zap.String("bucket", cfg.Storage.GCSBucket))
		a.blobs = blobs
		a.backend = store.NewCSVBackend(blobs, cfg.Storage.Prefix)
	case config.ProviderLocal, config.ProviderPostgres:
		blobs, err := local.New(local.Config{BaseDir: cfg.Storage.DataDir})
		if err != nil {
			return fmt.Errorf("init local storage: %w", err)
		}
		a.logger.Info("using local storage", zap.String("dir", cfg.Storage.DataDir))
		a.blobs = blobs
		a.backend = store.NewCSVBackend(blobs, cfg.Storage.Prefix)
	default:
		return fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}

	if cfg.Storage.Provider != config.ProviderPostgres {
		return nil
	}
	pg, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		Table:           cfg.DB.Table,
		MaxConns:        int32(cfg.DB.MaxConns),
		MaxConnLifetime: 30 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("init postgres store: %w", err)
	}
	a.closers = append(a.closers, func() error { pg.Close(); return nil })
	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}
	a.logger.Info("using postgres chart store", zap.String("table", cfg.DB.Table))
	a.backend = pg
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	if a.cfg.PubSub.TopicName == "" {
		return nil
	}
	pub, err := pubsubpublisher.New(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub: %w", err)
	}
	a.closers = append(a.closers, pub.Close)
	a.logger.Info("publishing run summaries", zap.String("topic", a.cfg.PubSub.TopicName))
	a.publisher = pub
	return nil
}

// StartMetrics serves Prometheus metrics when metrics.addr is set.
func (a *App) StartMetrics() error {
	if a.cfg.Metrics.Addr == "" || a.metrics != nil {
		return nil
	}
	srv, err := metrics.Start(a.cfg.Metrics.Addr, logging.Component(a.logger, "metrics"))
	if err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	a.metrics = srv
	return nil
}

// NewRunner wires the scrape pipeline from the configured services.
func (a *App) NewRunner() (*scraper.Runner, error) {
	cfg := a.cfg
	kinds, err := cfg.ChartKinds()
	if err != nil {
		return nil, err
	}
	fetcher, err := collyfetcher.New(collyfetcher.Config{
		BaseURL:      cfg.Scraper.BaseURL,
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.RequestTimeout(),
		MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
	}, logging.Component(a.logger, "fetcher"))
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	deps := scraper.Deps{
		Fetcher:   fetcher,
		Extractor: extract.New(logging.Component(a.logger, "extract")),
		Store:     store.New(a.backend, logging.Component(a.logger, "store")),
		Clock:     system.New(),
	}
	if cfg.Archive.Enabled {
		deps.Archiver = archive.New(a.blobs, cfg.Archive.Prefix, logging.Component(a.logger, "archive"))
	}
	if a.publisher != nil {
		deps.Publisher = a.publisher
	}

	return scraper.New(deps, scraper.Config{
		Delay: cfg.Delay(),
		Topic: cfg.PubSub.TopicName,
		Kinds: kinds,
	}, logging.Component(a.logger, "scraper"))
}

// NewUpdater builds the dataset updater writing into storage.data_dir.
func (a *App) NewUpdater() (*updater.Updater, error) {
	cfg := a.cfg
	return updater.New(updater.Config{
		Dataset:         cfg.Updater.Dataset,
		APIBaseURL:      cfg.Updater.APIBaseURL,
		DataDir:         cfg.Storage.DataDir,
		CredentialsPath: cfg.Updater.CredentialsPath,
		DesktopPath:     cfg.Updater.DesktopPath,
		Timeout:         cfg.UpdaterTimeout(),
	}, logging.Component(a.logger, "updater"))
}

// Close shuts down all services in reverse start order.
func (a *App) Close() {
	var errs []error
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.metrics.Shutdown(ctx))
		cancel()
		a.metrics = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error shutting down services", zap.Error(err))
	}
}
