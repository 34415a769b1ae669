// Package resilience contains the failure-isolation primitives shared by the
// transcript extractor and the discovery orchestrator: per-method circuit
// breakers, per-URL instance health tracking, outbound request pacing and the
// retry backoff policy.
package resilience

import (
	"sync"
	"time"
)

// BreakerState represents the state of one method's circuit.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

type breaker struct {
	state       BreakerState
	failures    int
	lastFailure time.Time
}

// BreakerRegistry tracks one circuit per method name. A method's circuit
// opens after FailureThreshold consecutive failures and probes recovery after
// RecoveryTimeout has elapsed since the last failure.
type BreakerRegistry struct {
	mu               sync.Mutex
	breakers         map[string]*breaker
	failureThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time
}

// NewBreakerRegistry creates a registry. Non-positive arguments select the
// defaults of 5 failures and a 300s recovery window.
func NewBreakerRegistry(failureThreshold int, recoveryTimeout time.Duration) *BreakerRegistry {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 300 * time.Second
	}
	return &BreakerRegistry{
		breakers:         make(map[string]*breaker),
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
	}
}

func (r *BreakerRegistry) get(name string) *breaker {
	b, ok := r.breakers[name]
	if !ok {
		b = &breaker{state: StateClosed}
		r.breakers[name] = b
	}
	return b
}

// CanExecute reports whether the named method may run. An OPEN circuit whose
// recovery window has elapsed transitions to HALF_OPEN and admits one probe.
func (r *BreakerRegistry) CanExecute(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.get(name)
	if b.state != StateOpen {
		return true
	}
	if r.now().Sub(b.lastFailure) >= r.recoveryTimeout {
		b.state = StateHalfOpen
		return true
	}
	return false
}

// RecordSuccess closes the circuit and resets the failure count.
func (r *BreakerRegistry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.get(name)
	b.state = StateClosed
	b.failures = 0
}

// RecordFailure counts a failure. A HALF_OPEN probe failure reopens the
// circuit immediately; a CLOSED circuit opens at the failure threshold.
func (r *BreakerRegistry) RecordFailure(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.get(name)
	b.failures++
	b.lastFailure = r.now()

	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
	case StateClosed:
		if b.failures >= r.failureThreshold {
			b.state = StateOpen
		}
	}
}

// State returns the current state of the named circuit.
func (r *BreakerRegistry) State(name string) BreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(name).state
}

// Snapshot returns state and consecutive failures per known method.
func (r *BreakerRegistry) Snapshot() map[string]BreakerSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]BreakerSnapshot, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = BreakerSnapshot{
			State:       b.state,
			Failures:    b.failures,
			LastFailure: b.lastFailure,
		}
	}
	return out
}

// BreakerSnapshot is a point-in-time view of one circuit.
type BreakerSnapshot struct {
	State       BreakerState `json:"state"`
	Failures    int          `json:"failures"`
	LastFailure time.Time    `json:"last_failure"`
}
