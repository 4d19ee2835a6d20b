package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"regime-engine/internal/decisionlog"
	"regime-engine/internal/engine"
	"regime-engine/internal/engine/engineobs"
	"regime-engine/internal/interfaces"
	"regime-engine/internal/logger"
	"regime-engine/internal/memory"
	"regime-engine/internal/metrics"
	"regime-engine/internal/news"
	"regime-engine/internal/store"
	"regime-engine/internal/trace"
)

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig reads path, falling back to defaults when the file is absent.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn(ctx, "Config file not found - using defaults", "path", path)
		return store.DefaultConfig(), nil
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// state bundles the stores that outlive a single evaluation.
type state struct {
	memory  interfaces.RegimeMemory
	configs interfaces.ConfigStore
	closer  func() error
}

// initializeState picks the in-process or Redis-backed stores.
func initializeState(ctx context.Context, cfg *store.Config) (*state, error) {
	if cfg.State.Backend != "redis" {
		logger.Info(ctx, "Using in-process state; regimes are forgotten on exit")
		return &state{
			memory:  memory.NewInMemory(),
			configs: store.NewMemoryConfigStore(),
			closer:  func() error { return nil },
		}, nil
	}
	client, err := store.OpenRedis(ctx, cfg.State.RedisURL)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Connected to Redis", "ttl", cfg.RegimeTTL().String())
	return &state{
		memory:  memory.NewRedis(client, cfg.RegimeTTL()),
		configs: store.NewRedisConfigStore(client),
		closer:  client.Close,
	}, nil
}

// initializeNews builds the news service from the injected configuration.
func initializeNews(ctx context.Context, cfg *store.Config) (*news.Service, *news.RegionClassifier) {
	weights := news.ParseSourceWeights(cfg.News.SourceWeights)
	var regions *news.RegionClassifier
	if cfg.News.RegionRulesPath != "" {
		regions = news.NewRegionClassifier(cfg.News.RegionRulesPath)
	} else {
		logger.Debug(ctx, "No region rules file configured")
	}
	svc := news.NewService(news.NewScorer(weights), regions, &news.ServiceConfig{
		Window:        cfg.NewsWindow(),
		HalfLife:      cfg.NewsHalfLife(),
		MinConfidence: cfg.News.MinConfidence,
		DecayK:        cfg.News.DecayK,
		Enabled:       true,
	})
	return svc, regions
}

// initializeEngine initializes and returns the engine with observability
func initializeEngine(cfg *store.Config, st *state, ns interfaces.NewsSignals, rec *metrics.Recorder) interfaces.Engine {
	eng := engine.New(st.memory, ns, engine.Freshness{
		News:         time.Duration(cfg.Freshness.NewsMinutes) * time.Minute,
		Realtime1m:   time.Duration(cfg.Freshness.RealtimeMinutes1m) * time.Minute,
		RealtimeSlow: time.Duration(cfg.Freshness.RealtimeMinutesSlow) * time.Minute,
	})

	// Wrap with observability middleware
	return engineobs.Wrap(eng, rec)
}

// initializeMetrics registers the recorder and, when addr is set, serves
// /metrics in the background.
func initializeMetrics(ctx context.Context, addr string) (*metrics.Recorder, *http.Server) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)
	if addr == "" {
		return rec, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "Metrics server stopped", err, "addr", addr)
		}
	}()
	logger.Info(ctx, "Serving metrics", "addr", addr)
	return rec, srv
}

// enforceRetention compresses and purges old decision files.
func enforceRetention(ctx context.Context, dl *decisionlog.Log, cfg *store.Config) {
	now := time.Now()
	if n, err := dl.CompressOlder(cfg.DecisionLog.CompressAfterDays, now); err != nil {
		logger.Warn(ctx, "Failed to compress old decision logs", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "Compressed decision logs", "files", n)
	}
	if n, err := dl.Purge(cfg.DecisionLog.RetentionDays, now); err != nil {
		logger.Warn(ctx, "Failed to purge old decision logs", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "Purged decision logs", "files", n)
	}
}
