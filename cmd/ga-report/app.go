package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/ignite/ga-deep-dive/internal/auth"
	"github.com/ignite/ga-deep-dive/internal/collector"
	"github.com/ignite/ga-deep-dive/internal/config"
	"github.com/ignite/ga-deep-dive/internal/ga4"
	"github.com/ignite/ga-deep-dive/internal/pkg/distlock"
	"github.com/ignite/ga-deep-dive/internal/pkg/httpretry"
	"github.com/ignite/ga-deep-dive/internal/pkg/logger"
	"github.com/ignite/ga-deep-dive/internal/storage"
	"github.com/ignite/ga-deep-dive/internal/telemetry"
)

// app holds the long-lived collaborators shared by the commands.
type app struct {
	cfg       *config.Config
	tokens    auth.TokenStore
	db        *sql.DB
	redis     *redis.Client
	registry  *prometheus.Registry
	metrics   *telemetry.Metrics
	collector *collector.Collector
}

// newApp wires the analytics client, cache, snapshot store and run lock.
// A missing or unusable token is an authentication error.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		tokens:   auth.FileTokenStore{Path: cfg.GA4.TokenPath},
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = telemetry.NewMetrics(a.registry)

	oauthCfg, err := auth.LoadClientConfig(cfg.GA4.CredentialsPath, cfg.GA4.TokenURL)
	if err != nil {
		return nil, err
	}
	httpClient, err := auth.NewManager(oauthCfg, a.tokens).HTTPClient(ctx, &http.Client{Timeout: cfg.GA4.Timeout()})
	if err != nil {
		return nil, err
	}
	doer := httpretry.NewRetryClient(httpClient, cfg.GA4.MaxRetries,
		httpretry.WithBaseDelay(cfg.GA4.RetryBaseDelay()),
		httpretry.WithLimiter(rate.NewLimiter(rate.Limit(cfg.GA4.QPS), 1)),
		httpretry.WithRetryHook(func(attempt, status int) {
			logger.Debug("retrying analytics request", "attempt", attempt, "status", status)
			a.metrics.Retry(status)
		}),
	)
	var runner ga4.Runner = ga4.NewClient(cfg.GA4.BaseURL, doer, a.metrics)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if ttl := cfg.Redis.CacheTTL(); ttl > 0 {
			runner = ga4.NewCachedRunner(runner, a.redis, ttl, a.metrics)
			logger.Info("response cache enabled", "ttl", ttl.String())
		}
	}

	if cfg.Storage.DatabaseURL != "" {
		if a.db, err = storage.OpenPostgres(cfg.Storage.DatabaseURL); err != nil {
			a.Close()
			return nil, err
		}
	}
	store, err := storage.New(ctx, cfg.Storage, a.db)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []collector.Option{
		collector.WithMetrics(a.metrics),
		collector.WithLocks(func(key string) distlock.DistLock {
			return distlock.NewLock(a.redis, a.db, key, cfg.Redis.LockTTL())
		}),
	}
	if store != nil {
		opts = append(opts, collector.WithStore(store))
	}
	a.collector = collector.New(cfg, ga4.NewSource(runner), opts...)
	return a, nil
}

// Close releases the database and Redis connections.
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("redis close failed", "err", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("database close failed", "err", err)
		}
	}
}
