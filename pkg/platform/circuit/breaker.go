// Package circuit tracks the health of an upstream dependency with a
// two-state breaker. It never refuses calls itself; callers read its state
// to report readiness and to log transitions.
package circuit

import "sync"

// State is the breaker position.
type State int

const (
	// StateClosed means recent calls to the upstream succeeded.
	StateClosed State = iota
	// StateOpen means the upstream has failed FailureThreshold times in a row.
	StateOpen
)

// String returns the state as used in logs and health output.
func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// StateChange reports a transition caused by the last recorded call.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker counts consecutive outcomes. After failureThreshold consecutive
// failures it opens; after successThreshold consecutive successes while open
// it closes again.
type Breaker struct {
	mu               sync.Mutex
	state            State
	name             string
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets the consecutive failures that open the breaker. Default 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the consecutive successes that close it again. Default 3.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// New creates a closed breaker named after the upstream it watches.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: 5,
		successThreshold: 3,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Name returns the breaker name for logs and metrics.
func (b *Breaker) Name() string {
	return b.name
}

// IsOpen reports whether the upstream is currently considered down.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Record feeds the outcome of one call into the breaker.
func (b *Breaker) Record(err error) StateChange {
	if err != nil {
		_, change := b.RecordFailure()
		return change
	}
	_, change := b.RecordSuccess()
	return change
}

// RecordFailure records a failed call. It reports whether the breaker is
// open afterwards and whether this call opened it.
func (b *Breaker) RecordFailure() (open bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.successCount = 0

	if b.state == StateOpen {
		return true, StateChange{}
	}
	if b.failureCount >= b.failureThreshold {
		b.state = StateOpen
		return true, StateChange{Opened: true}
	}
	return false, StateChange{}
}

// RecordSuccess records a successful call. It reports whether the breaker is
// closed afterwards and whether this call closed it.
func (b *Breaker) RecordSuccess() (closed bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
			return true, StateChange{Closed: true}
		}
		return false, StateChange{}
	}

	b.failureCount = 0
	return true, StateChange{}
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
}
