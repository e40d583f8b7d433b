// Package app initializes and holds the long-lived application services,
// acting as the dependency injection container the CLI commands share.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trafikalert/internal/api"
	"trafikalert/internal/cache"
	"trafikalert/internal/config"
	"trafikalert/internal/connectors"
	"trafikalert/internal/geo"
	"trafikalert/internal/httpx"
	"trafikalert/internal/ingest"
	"trafikalert/internal/logging"
	"trafikalert/internal/metrics"
	"trafikalert/internal/predict"
	"trafikalert/internal/store"
	"trafikalert/internal/traffic"
)

// App holds the shared services. It is built once per process and passed
// to the command that needs it.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Cache    cache.Store
	Store    *store.Store
	Ingest   *ingest.Service
	Recorder *ingest.HealthRecorder
	Writer   *ingest.Writer
	Engine   *predict.Engine
	Traffic  *traffic.Service
	Geo      *geo.Service
	API      *api.Server
}

// New builds every service from the configuration. It fails fast: a
// Redis or Postgres that cannot be reached aborts startup.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	metrics.Init()
	logger.Info("initializing services")

	var cacheStore cache.Store
	if cfg.Redis.URL != "" {
		cacheStore, err = cache.NewRedisStore(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	} else {
		logger.Warn("redis url not set, using in-memory cache")
		cacheStore = cache.NewMemoryStore()
	}

	pg, err := store.New(ctx, store.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxOpenConns),
		MaxConnLifetime: time.Hour,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	httpCfg := httpx.Config{
		Timeout:         cfg.HTTP.HTTPTimeout(),
		MaxAttempts:     cfg.HTTP.MaxAttempts,
		BackoffInitial:  time.Duration(cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		BackoffMax:      time.Duration(cfg.HTTP.BackoffMaxMs) * time.Millisecond,
		BreakerFailures: uint32(cfg.HTTP.BreakerFailures),
		BreakerCooldown: time.Duration(cfg.HTTP.BreakerCooldownSec) * time.Second,
	}

	conns := connectors.BuildAll(connectors.Deps{
		Store:  cacheStore,
		Logger: logger,
		HTTP:   httpCfg,
	})
	conns = ingest.Filter(conns,
		cfg.Connectors.EnabledConnectors(),
		cfg.Connectors.DisabledConnectors())
	logger.Info("connectors enabled", zap.Int("count", len(conns)))

	service := ingest.New(conns, logger)
	recorder := ingest.NewHealthRecorder(cacheStore, logger)
	writer := ingest.NewWriter(pg, service, recorder, logger)
	engine := predict.NewEngine(pg, logger)
	trafficSvc := traffic.New(cacheStore, httpCfg, logger)
	geoSvc := geo.New(cacheStore, httpCfg, cfg.Geocoding.GoogleAPIKey, logger)
	server := api.NewServer(pg, recorder, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Cache:    cacheStore,
		Store:    pg,
		Ingest:   service,
		Recorder: recorder,
		Writer:   writer,
		Engine:   engine,
		Traffic:  trafficSvc,
		Geo:      geoSvc,
		API:      server,
	}, nil
}

// Close releases every held resource. Safe on a partially built App.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("closing cache failed", zap.Error(err))
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
