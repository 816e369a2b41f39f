// Package circuitbreaker protects the fee estimator from hammering RPC
// endpoints that are persistently failing.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State represents the current state of a network's circuit
type State int

// Circuit states
const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Tripped, queries short-circuited
	StateHalfOpen              // Probing whether the endpoint has recovered
)

// String returns the state name for logs and status responses.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Options configures the breaker thresholds.
type Options struct {
	// FailureThreshold is the number of consecutive failures that trips a
	// network's circuit.
	FailureThreshold int

	// Cooldown is how long an open circuit waits before allowing a probe.
	Cooldown time.Duration

	// SuccessThreshold is the number of consecutive successes in half-open
	// state required to close the circuit again.
	SuccessThreshold int

	// OnTrip is an optional callback for monitoring/alerting.
	OnTrip func(network string)
}

// circuit tracks the breaker state for one network.
type circuit struct {
	state        State
	failures     int
	successCount int
	lastTrip     time.Time
}

// Breaker tracks RPC health per network. Each network's circuit is
// independent; a tripped circuit never affects its siblings.
type Breaker struct {
	opts     Options
	mu       sync.Mutex
	circuits map[string]*circuit
}

// New creates a Breaker with the provided options, applying defaults for
// unset thresholds.
func New(opts Options) *Breaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = time.Minute
	}
	if opts.SuccessThreshold <= 0 {
		opts.SuccessThreshold = 2
	}
	return &Breaker{
		opts:     opts,
		circuits: make(map[string]*circuit),
	}
}

// Allow reports whether a query against the network may proceed. An open
// circuit past its cooldown transitions to half-open and admits one probe.
func (b *Breaker) Allow(network string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(network)
	switch c.state {
	case StateOpen:
		if time.Since(c.lastTrip) > b.opts.Cooldown {
			c.state = StateHalfOpen
			c.successCount = 0
			logrus.Infof("Circuit half-open for %s: probing recovery", network)
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess notes a successful query against the network.
func (b *Breaker) RecordSuccess(network string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(network)
	c.failures = 0
	if c.state == StateHalfOpen {
		c.successCount++
		if c.successCount >= b.opts.SuccessThreshold {
			c.state = StateClosed
			c.successCount = 0
			logrus.Infof("Circuit closed for %s: endpoint recovered", network)
		}
	}
}

// RecordFailure notes a failed query against the network, tripping the
// circuit once the consecutive failure threshold is reached. A failure during
// a half-open probe re-opens immediately.
func (b *Breaker) RecordFailure(network string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(network)
	c.failures++
	if c.state == StateHalfOpen || c.failures >= b.opts.FailureThreshold {
		b.trip(network, c)
	}
}

// StateOf returns the current circuit state for a network.
func (b *Breaker) StateOf(network string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.circuit(network).state
}

// Reset forcibly closes the circuit for a network.
func (b *Breaker) Reset(network string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(network)
	c.state = StateClosed
	c.failures = 0
	c.successCount = 0
	logrus.Infof("Circuit manually reset for %s", network)
}

// circuit returns the circuit for a network, creating it on first use.
// Callers must hold the mutex.
func (b *Breaker) circuit(network string) *circuit {
	c, ok := b.circuits[network]
	if !ok {
		c = &circuit{state: StateClosed}
		b.circuits[network] = c
	}
	return c
}

// trip opens a circuit. Callers must hold the mutex.
func (b *Breaker) trip(network string, c *circuit) {
	c.state = StateOpen
	c.lastTrip = time.Now()
	c.successCount = 0
	logrus.Warnf("Circuit tripped for %s after %d consecutive failures", network, c.failures)

	if b.opts.OnTrip != nil {
		go b.opts.OnTrip(network)
	}
}
