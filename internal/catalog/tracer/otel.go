package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans emitted by this module.
const InstrumentationName = "sbname/catalog"

// Span names.
const (
	SpanResolve = "resolver.resolve"
	SpanSearch  = "catalog.search"
	SpanPersist = "cache.persist"
)

// Attribute keys.
const (
	AttrCode     = "product.code"
	AttrCacheHit = "cache.hit"
	AttrOutcome  = "resolve.outcome"
	AttrSource   = "resolve.source"
	AttrHits     = "search.hits"
	AttrMatches  = "search.matches"
	AttrCategory = "search.error_category"
)

// spanKinds marks the spans that leave the process. Unlisted names are internal.
var spanKinds = map[string]trace.SpanKind{
	SpanSearch:  trace.SpanKindClient,
	SpanPersist: trace.SpanKindClient,
}

// OTelTracer exports resolution spans through OpenTelemetry.
type OTelTracer struct {
	tracer trace.Tracer
}

// OTelOption configures the OTelTracer.
type OTelOption func(*OTelTracer)

// WithOTelTracer injects a pre-configured OpenTelemetry tracer.
func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) {
		o.tracer = t
	}
}

// NewOTel uses the global tracer provider unless WithOTelTracer is given.
func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(InstrumentationName)
	}
	return t
}

// Start opens a span of the kind registered for name.
func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	kind, ok := spanKinds[name]
	if !ok {
		kind = trace.SpanKindInternal
	}
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(keyValues(attrs)...),
	)
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

// End marks the span failed when err is set and OK otherwise.
func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(keyValues(attrs)...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(keyValues(attrs)...))
}

func keyValues(attrs []Attribute) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		kvs = append(kvs, a.keyValue())
	}
	return kvs
}

// keyValue converts a to an OpenTelemetry attribute. Values of other types
// are rendered with fmt.
func (a Attribute) keyValue() attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case int64:
		return attribute.Int64(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case float64:
		return attribute.Float64(a.Key, v)
	default:
		return attribute.String(a.Key, fmt.Sprint(v))
	}
}

var _ Tracer = (*OTelTracer)(nil)
