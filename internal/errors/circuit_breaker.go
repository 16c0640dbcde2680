package errors

import (
	"errors"
	"sync"
	"time"
)

// Defaults for NewCircuitBreaker.
const (
	ErrorThreshold      = 0.5
	MinRequests         = 10
	TimeoutDuration     = 30 * time.Second
	HalfOpenMaxRequests = 3
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned without calling fn while the breaker is open.
	ErrCircuitOpen             = errors.New("circuit breaker is open")
	errHalfOpenTooManyRequests = errors.New("too many requests in half-open")
)

// BreakerOption tunes a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithOpenTimeout sets how long the breaker stays open before probing again.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(cb *CircuitBreaker) { cb.openFor = d }
}

// WithStateChange registers fn, called outside the lock after every transition.
func WithStateChange(fn func(from, to State)) BreakerOption {
	return func(cb *CircuitBreaker) { cb.onChange = fn }
}

// CircuitBreaker stops calling a failing dependency (the log chat) for a while once half
// of at least MinRequests calls have failed.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	requests        int
	lastFailureTime time.Time

	openFor  time.Duration
	onChange func(from, to State)
	now      func() time.Time
}

func NewCircuitBreaker(opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		state:   StateClosed,
		openFor: TimeoutDuration,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Call runs fn unless the breaker is open.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	cb.mu.Lock()
	before := cb.state
	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailureTime) < cb.openFor {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.resetCountersLocked()
	}
	if cb.state == StateHalfOpen && cb.requests >= HalfOpenMaxRequests {
		cb.mu.Unlock()
		cb.notify(before, StateHalfOpen)
		return errHalfOpenTooManyRequests
	}
	cb.requests++
	cb.mu.Unlock()

	callErr := fn()

	cb.mu.Lock()
	if callErr != nil {
		cb.failures++
		if cb.state == StateHalfOpen || cb.tripping() {
			cb.state = StateOpen
			cb.lastFailureTime = cb.now()
			cb.resetCountersLocked()
		}
	} else {
		cb.successes++
		if cb.state == StateHalfOpen && cb.successes >= HalfOpenMaxRequests {
			cb.state = StateClosed
			cb.resetCountersLocked()
		}
	}
	after := cb.state
	cb.mu.Unlock()

	cb.notify(before, after)
	return callErr
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) tripping() bool {
	if cb.requests < MinRequests {
		return false
	}
	return float64(cb.failures)/float64(cb.requests) >= ErrorThreshold
}

func (cb *CircuitBreaker) resetCountersLocked() {
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from != to && cb.onChange != nil {
		cb.onChange(from, to)
	}
}
