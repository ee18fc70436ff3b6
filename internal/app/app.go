// Package app assembles the lookup cache, catalog client and resolver from
// configuration. Both the HTTP server and sbnamectl build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"sbname/internal/catalog/cache"
	"sbname/internal/catalog/format"
	"sbname/internal/catalog/metrics"
	"sbname/internal/catalog/search"
	"sbname/internal/catalog/service"
	"sbname/internal/catalog/store"
	"sbname/internal/catalog/tracer"
	"sbname/internal/platform/config"
	"sbname/internal/platform/database"
	"sbname/internal/platform/health"
	redisclient "sbname/internal/platform/redis"
	"sbname/pkg/platform/circuit"
)

// App holds the assembled components. Cache is nil when the service runs
// without one, either by configuration or because the slot could not be opened.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Cache   *cache.Cache
	Search  *search.HTTPClient
	Breaker *circuit.Breaker
	Service *service.Service
	Redis   *redisclient.Client

	// CacheErr explains why Cache is nil when a driver was configured.
	CacheErr error

	slotHealth func(context.Context) error
	closers    []func() error
}

type options struct {
	registerer prometheus.Registerer
	doer       search.HTTPDoer
	tracer     tracer.Tracer
	slot       cache.Slot
}

// Option customizes Build.
type Option func(*options)

// WithRegisterer registers metrics on reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithHTTPDoer replaces the catalog HTTP client.
func WithHTTPDoer(d search.HTTPDoer) Option {
	return func(o *options) { o.doer = d }
}

// WithTracer sets the resolver tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithSlot bypasses the configured cache driver.
func WithSlot(slot cache.Slot) Option {
	return func(o *options) { o.slot = slot }
}

// Build wires every component. Slot failures are logged and leave the app
// running without a cache; only invalid configuration is returned as an error.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(o.registerer),
	}

	slot := o.slot
	if slot == nil && cfg.Cache.Driver != config.DriverNone {
		var err error
		slot, err = a.openSlot(ctx, o.registerer)
		if err != nil {
			slot = nil
			a.CacheErr = err
			logger.WarnContext(ctx, "cache slot unavailable, running without cache",
				"driver", cfg.Cache.Driver,
				"error", err,
			)
		}
	}
	if slot != nil {
		c, err := cache.Open(ctx, slot, cache.WithLogger(logger), cache.WithMetrics(a.Metrics))
		if err != nil {
			a.CacheErr = err
			logger.WarnContext(ctx, "cache could not be loaded, running without cache",
				"driver", cfg.Cache.Driver,
				"error", err,
			)
		} else {
			a.Cache = c
		}
	}

	a.Breaker = circuit.New("catalog",
		circuit.WithFailureThreshold(cfg.Search.BreakerFailures),
		circuit.WithSuccessThreshold(cfg.Search.BreakerSuccesses),
	)
	searchOpts := []search.HTTPClientOption{
		search.WithAPIKey(cfg.Search.APIKey),
		search.WithQueryParam(cfg.Search.QueryParam),
		search.WithTimeout(cfg.Search.Timeout),
		search.WithBreaker(a.Breaker),
		search.WithLogger(logger),
	}
	if o.doer != nil {
		searchOpts = append(searchOpts, search.WithHTTPDoer(o.doer))
	}
	a.Search = search.NewHTTPClient(cfg.Search.URL, searchOpts...)

	svcOpts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(a.Metrics),
		service.WithFormat(FormatOptions(cfg.Format)),
		service.WithConcurrency(cfg.Resolver.Concurrency),
		service.WithTracer(o.tracer),
	}
	var nameCache service.NameCache
	if a.Cache != nil {
		nameCache = a.Cache
	}
	a.Service = service.New(a.Search, nameCache, svcOpts...)

	return a, nil
}

// FormatOptions converts the configured display options.
func FormatOptions(f config.Format) format.Options {
	return format.Options{
		CropThreshold: f.CropThreshold,
		CropLength:    f.CropLength,
		Suffix:        f.Suffix,
		WrapTag:       f.WrapTag,
	}
}

func (a *App) openSlot(ctx context.Context, reg prometheus.Registerer) (cache.Slot, error) {
	c := a.Config.Cache
	switch c.Driver {
	case config.DriverMemory:
		return store.NewMemorySlot(), nil
	case config.DriverFile:
		s, err := store.NewFileSlot(c.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := store.NewSQLiteSlot(c.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.slotHealth = s.Health
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.DriverPostgres:
		pool, err := database.New(ctx, database.DefaultConfig(c.DatabaseURL))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		s, err := store.NewPostgresSlot(ctx, pool.DB())
		if err != nil {
			return nil, err
		}
		a.slotHealth = pool.Health
		return s, nil
	case config.DriverRedis:
		client, err := redisclient.New(ctx, redisclient.Config{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		}, redisclient.NewPoolMetrics(reg))
		if err != nil {
			return nil, err
		}
		a.Redis = client
		a.closers = append(a.closers, client.Close)
		s := store.NewRedisSlot(client.Client)
		a.slotHealth = s.Health
		return s, nil
	case config.DriverS3:
		s, err := store.NewS3Slot(ctx, store.S3Config{
			Bucket:          c.S3.Bucket,
			Prefix:          c.S3.Prefix,
			Region:          c.S3.Region,
			Endpoint:        c.S3.Endpoint,
			PathStyle:       c.S3.PathStyle,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		a.slotHealth = s.Health
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", c.Driver)
	}
}

// RegisterChecks adds the cache and catalog readiness checks.
func (a *App) RegisterChecks(h *health.Handler) {
	if a.Config.Cache.Driver != config.DriverNone {
		h.RegisterCheck("cache", a.checkCache)
	}
	h.RegisterCheck("catalog", func(context.Context) error {
		return a.Search.Health()
	})
}

func (a *App) checkCache(ctx context.Context) error {
	if a.Cache == nil {
		if a.CacheErr != nil {
			return fmt.Errorf("running without cache: %w", a.CacheErr)
		}
		return errors.New("running without cache")
	}
	if a.slotHealth != nil {
		return a.slotHealth(ctx)
	}
	return nil
}

// Close releases slot connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
