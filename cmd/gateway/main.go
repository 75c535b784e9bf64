package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/metar-gateway/internal/cache"
	"github.com/kjstillabower/metar-gateway/internal/client"
	"github.com/kjstillabower/metar-gateway/internal/config"
	"github.com/kjstillabower/metar-gateway/internal/graph"
	httphandler "github.com/kjstillabower/metar-gateway/internal/http"
	"github.com/kjstillabower/metar-gateway/internal/lifecycle"
	"github.com/kjstillabower/metar-gateway/internal/observability"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	lifecycle.MarkStarted(time.Now())

	responseCache, closeCache, err := newCache(cfg)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	logger.Info("cache backend", zap.String("backend", cfg.CacheBackend))

	metarClients, err := client.NewFactory(cfg.UpstreamURL, client.NewHTTPClient(cfg.UpstreamTimeout), responseCache, cfg.CacheDefaultTTL)
	if err != nil {
		logger.Fatal("metar client", zap.Error(err))
	}

	schema, err := graph.NewSchema()
	if err != nil {
		logger.Fatal("graphql schema", zap.Error(err))
	}

	healthConfig := &httphandler.HealthConfig{
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
		IdleWindow:           cfg.IdleWindow,
		IdleThresholdQueries: cfg.IdleThresholdQueries,
		MinimumLifespan:      cfg.MinimumLifespan,
	}
	if p, ok := responseCache.(cache.Pinger); ok {
		healthConfig.CachePing = p.Ping
	}
	if len(cfg.TrackedStations) > 0 {
		observability.SetTrackedStations(cfg.TrackedStations)
	}

	newMetar := func() client.MetarFetcher { return metarClients.New() }
	handler := httphandler.NewHandler(schema, newMetar, healthConfig, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           httphandler.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server ready",
			zap.String("addr", srv.Addr),
			zap.String("url", "http://localhost:"+cfg.ServerPort+"/graphql"),
			zap.String("upstream", cfg.UpstreamURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stop()
		logger.Fatal("server", zap.Error(err))
	}
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := closeCache(); err != nil {
		logger.Error("cache close", zap.Error(err))
	}
	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}

// newCache builds the configured response cache and its close function.
// The none backend returns a nil cache.
func newCache(cfg *config.Config) (cache.Cache, func() error, error) {
	switch cfg.CacheBackend {
	case cache.BackendNone:
		return nil, func() error { return nil }, nil
	case cache.BackendMemcached:
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, nil, fmt.Errorf("memcached cache: %w", err)
		}
		return mc, mc.Close, nil
	case cache.BackendInMemory:
		mem, err := cache.NewInMemoryCache(cfg.CacheMaxEntries)
		if err != nil {
			return nil, nil, fmt.Errorf("in-memory cache: %w", err)
		}
		return mem, func() error { mem.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
