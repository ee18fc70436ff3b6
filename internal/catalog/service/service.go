// Package service resolves product codes to display names, reading through
// the lookup cache and writing remote hits back to it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"sbname/internal/catalog/cache"
	"sbname/internal/catalog/format"
	"sbname/internal/catalog/metrics"
	"sbname/internal/catalog/models"
	"sbname/internal/catalog/search"
	"sbname/internal/catalog/tracer"
	"sbname/pkg/domain"
	dErrors "sbname/pkg/domain-errors"
)

// DefaultConcurrency bounds ResolveAll when no limit is configured.
const DefaultConcurrency = 4

// Resolution pairs an input with its result, for batch and async callers.
type Resolution struct {
	Input  string
	Result models.Result
	Err    error
}

// Service resolves product codes.
type Service struct {
	searcher    Searcher
	cache       NameCache
	format      format.Options
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer. Defaults to a no-op tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithFormat sets the display name options.
func WithFormat(opts format.Options) Option {
	return func(s *Service) {
		s.format = opts
	}
}

// WithConcurrency bounds the number of concurrent lookups in ResolveAll.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates a resolver. nameCache may be nil, in which case every lookup
// goes to the catalog.
func New(searcher Searcher, nameCache NameCache, opts ...Option) *Service {
	s := &Service{
		searcher:    searcher,
		cache:       nameCache,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		tracer:      tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve turns raw into a display name.
//
// An input that is not a product code, or a code the catalog has no match
// for, yields a NotFound result and a nil error. A failed catalog call yields
// a CodeTransport error and is never cached. Remote hits are written to the
// cache and persisted before returning.
func (s *Service) Resolve(ctx context.Context, raw string) (result models.Result, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanResolve, tracer.String(tracer.AttrCode, raw))
	defer func() {
		if err == nil {
			span.SetAttributes(
				tracer.String(tracer.AttrOutcome, string(result.Outcome)),
				tracer.String(tracer.AttrSource, string(result.Source)),
			)
		}
		span.End(err)
	}()

	code, parseErr := domain.ParseCode(raw)
	if parseErr != nil {
		s.logger.DebugContext(ctx, "input is not a product code", "input", raw, "error", parseErr)
		s.recordResolution(models.NotFound(raw))
		return models.NotFound(raw), nil
	}

	if rec, ok := s.lookupCache(code.String()); ok {
		span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
		result = s.found(rec, models.SourceCache)
		s.recordResolution(result)
		return result, nil
	}
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))

	products, err := s.search(ctx, code.String())
	if err != nil {
		level := slog.LevelWarn
		if search.IsCanceled(err) {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, "catalog search failed",
			"code", code.String(),
			"category", string(search.GetCategory(err)),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.RecordResolution(string(dErrors.CodeTransport), "")
		}
		return models.Result{}, &dErrors.Error{Code: dErrors.CodeTransport, Message: "catalog search failed", Err: err}
	}

	matches := search.FilterByPrefix(products, code.String())
	span.SetAttributes(tracer.Int(tracer.AttrHits, len(products)), tracer.Int(tracer.AttrMatches, len(matches)))
	if len(matches) == 0 {
		result = models.NotFound(code.String())
		s.recordResolution(result)
		return result, nil
	}

	rec := matches[0].ToCachedRecord(code.String())
	s.store(ctx, rec)

	result = s.found(rec, models.SourceRemote)
	s.recordResolution(result)
	return result, nil
}

// ResolveAsync runs Resolve in a goroutine. The channel receives exactly one
// Resolution and is then closed. Cancelling ctx cancels the remote call.
func (s *Service) ResolveAsync(ctx context.Context, raw string) <-chan Resolution {
	ch := make(chan Resolution, 1)
	go func() {
		defer close(ch)
		result, err := s.Resolve(ctx, raw)
		ch <- Resolution{Input: raw, Result: result, Err: err}
	}()
	return ch
}

// ResolveAll resolves every input with bounded concurrency. The returned
// slice is in input order. A failure of one input does not stop the others;
// identical inputs are resolved independently.
func (s *Service) ResolveAll(ctx context.Context, raws []string) []Resolution {
	out := make([]Resolution, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, raw := range raws {
		g.Go(func() error {
			result, err := s.Resolve(gctx, raw)
			out[i] = Resolution{Input: raw, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// IsTransportError reports whether err came from a failed catalog call.
func IsTransportError(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeTransport)
}

func (s *Service) lookupCache(code string) (models.CachedRecord, bool) {
	if s.cache == nil || !s.cache.HasSupport() {
		return models.CachedRecord{}, false
	}
	rec, err := s.cache.Get(code)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.logger.Warn("cache lookup failed", "code", code, "error", err)
		}
		return models.CachedRecord{}, false
	}
	return rec, true
}

func (s *Service) search(ctx context.Context, code string) (products []models.Product, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSearch, tracer.String(tracer.AttrCode, code))
	start := time.Now()
	defer func() {
		if err != nil {
			span.SetAttributes(tracer.String(tracer.AttrCategory, string(search.GetCategory(err))))
		}
		span.End(err)
		if s.metrics != nil {
			s.metrics.ObserveSearch(err, time.Since(start).Seconds())
		}
	}()
	return s.searcher.Search(ctx, code)
}

// store writes rec to the cache and persists it. Persist failures are logged
// and do not change the resolution outcome.
func (s *Service) store(ctx context.Context, rec models.CachedRecord) {
	if s.cache == nil || !s.cache.HasSupport() {
		return
	}
	s.cache.Set(rec.Code, rec.Name, rec.ExtendedName)

	ctx, span := s.tracer.Start(ctx, tracer.SpanPersist, tracer.String(tracer.AttrCode, rec.Code))
	err := s.cache.Persist(ctx)
	span.End(err)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to persist lookup cache", "code", rec.Code, "error", err)
	}
}

func (s *Service) found(rec models.CachedRecord, source models.Source) models.Result {
	return models.Result{
		Code:      rec.Code,
		Outcome:   models.OutcomeFound,
		Formatted: format.Format(rec.Name, rec.ExtendedName, s.format),
		Record:    rec,
		Source:    source,
	}
}

func (s *Service) recordResolution(r models.Result) {
	if s.metrics != nil {
		s.metrics.RecordResolution(string(r.Outcome), string(r.Source))
	}
}
