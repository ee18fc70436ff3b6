package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sbname/internal/app"
	"sbname/internal/catalog/handler"
	"sbname/internal/catalog/tracer"
	"sbname/internal/platform/config"
	"sbname/internal/platform/health"
	"sbname/internal/platform/logger"
	httptransport "sbname/internal/transport/http"
	"sbname/pkg/platform/middleware/request"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Resolution logic lives in internal/catalog.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level)

	log.Info("initializing sbname",
		"addr", cfg.Server.Addr,
		"environment", cfg.Environment,
		"cache_driver", cfg.Cache.Driver,
		"search_url", cfg.Search.URL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.Build(ctx, cfg, log, app.WithRegisterer(reg), app.WithTracer(tracer.NewOTel()))
	if err != nil {
		log.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close cache slot", "error", err)
		}
	}()
	if a.Cache != nil {
		if cond := a.Cache.Condition(); cond != nil {
			log.Warn("cache started empty", "error", cond)
		}
		log.Info("lookup cache ready", "entries", a.Cache.Len(), "version", a.Cache.Version())
	}
	if a.Redis != nil {
		go a.Redis.WatchPoolStats(ctx, 15*time.Second)
	}

	healthHandler := health.New(cfg.Environment)
	a.RegisterChecks(healthHandler)

	var cacheStore handler.CacheStore
	if a.Cache != nil {
		cacheStore = a.Cache
	}
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Catalog:        handler.New(a.Service, cacheStore, log),
		Health:         healthHandler,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		HTTPMetrics:    request.NewMetrics(reg),
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return
	}

	log.Info("server stopped")
}
