package tracer

import (
	"context"
	"sync"
)

// RecordedSpan is a finished span kept by a Recorder.
type RecordedSpan struct {
	Name       string
	Attributes map[string]any
	Events     []string
	Err        error
}

// Recorder is an in-memory Tracer that keeps every ended span.
type Recorder struct {
	mu    sync.Mutex
	spans []RecordedSpan
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Start begins a span that is recorded when ended.
func (r *Recorder) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	s := &recordingSpan{recorder: r, span: RecordedSpan{Name: name, Attributes: map[string]any{}}}
	s.SetAttributes(attrs...)
	return ctx, s
}

// Spans returns the ended spans in completion order.
func (r *Recorder) Spans() []RecordedSpan {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedSpan, len(r.spans))
	copy(out, r.spans)
	return out
}

// Named returns the ended spans called name.
func (r *Recorder) Named(name string) []RecordedSpan {
	var out []RecordedSpan
	for _, s := range r.Spans() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

type recordingSpan struct {
	recorder *Recorder
	mu       sync.Mutex
	span     RecordedSpan
}

func (s *recordingSpan) End(err error) {
	s.mu.Lock()
	s.span.Err = err
	finished := s.span
	s.mu.Unlock()

	s.recorder.mu.Lock()
	s.recorder.spans = append(s.recorder.spans, finished)
	s.recorder.mu.Unlock()
}

func (s *recordingSpan) SetAttributes(attrs ...Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range attrs {
		s.span.Attributes[a.Key] = a.Value
	}
}

func (s *recordingSpan) AddEvent(name string, _ ...Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.span.Events = append(s.span.Events, name)
}

var (
	_ Tracer = (*Recorder)(nil)
	_ Span   = (*recordingSpan)(nil)
)
