// Package circuitbreaker stops calling a failing dependency for a cool-down
// period. The registration cache uses it so a Redis outage costs one timeout
// per cool-down instead of one per request.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the guarded function while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreaker struct {
	mu              sync.Mutex
	state           State
	failures        int
	probeSuccesses  int
	openedAt        time.Time
	lastStateChange time.Time
	now             func() time.Time

	maxFailures     int
	coolDown        time.Duration
	halfOpenSuccess int
}

type Config struct {
	MaxFailures     int           // consecutive failures that open the breaker, default 5
	CoolDown        time.Duration // time spent open before probing, default 30s
	HalfOpenSuccess int           // successful probes needed to close, default 1
	Now             func() time.Time
}

func New(cfg Config) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	if cfg.HalfOpenSuccess <= 0 {
		cfg.HalfOpenSuccess = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &CircuitBreaker{
		state:           StateClosed,
		maxFailures:     cfg.MaxFailures,
		coolDown:        cfg.CoolDown,
		halfOpenSuccess: cfg.HalfOpenSuccess,
		now:             cfg.Now,
		lastStateChange: cfg.Now(),
	}
}

// Call runs fn unless the breaker is open and records the outcome.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailure()
		return err
	}

	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return true
	}
	if cb.now().Sub(cb.openedAt) < cb.coolDown {
		return false
	}

	cb.setState(StateHalfOpen)
	cb.probeSuccesses = 0
	return true
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++

	// any failed probe reopens immediately
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.openedAt = cb.now()
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateHalfOpen:
		cb.probeSuccesses++
		if cb.probeSuccesses >= cb.halfOpenSuccess {
			cb.setState(StateClosed)
			cb.failures = 0
		}
	case StateClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) setState(next State) {
	if cb.state != next {
		cb.state = next
		cb.lastStateChange = cb.now()
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probeSuccesses = 0
	cb.lastStateChange = cb.now()
}

type Metrics struct {
	State           State     `json:"-"`
	StateName       string    `json:"state"`
	Failures        int       `json:"failures"`
	LastStateChange time.Time `json:"last_state_change"`
}

func (cb *CircuitBreaker) Metrics() Metrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Metrics{
		State:           cb.state,
		StateName:       cb.state.String(),
		Failures:        cb.failures,
		LastStateChange: cb.lastStateChange,
	}
}
