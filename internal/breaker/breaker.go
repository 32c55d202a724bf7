// Package breaker halts analysis serving when the upstream provider set
// is persistently unhealthy. It lives at the HTTP layer; the analysis
// core itself stays stateless.
package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State represents the current state of the circuit breaker
type State int

// Circuit breaker states
const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Tripped, analysis requests rejected
	StateHalfOpen              // Testing if providers have recovered
)

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

// Thresholds defines the limits that will trigger the circuit breaker
type Thresholds struct {
	// MinSources is the minimum number of providers that must contribute
	// data for a run to count as healthy.
	MinSources int `json:"min_sources"`

	// MaxConsecutiveEmpty is how many consecutive runs may come back with
	// no usable data before the circuit trips.
	MaxConsecutiveEmpty int `json:"max_consecutive_empty"`
}

// Breaker tracks provider health across runs and rejects new analysis
// requests while the upstream set looks dead.
type Breaker struct {
	thresholds Thresholds

	state    State
	lastTrip time.Time

	// Duration before an auto-reset attempt
	resetDelay time.Duration

	// Consecutive runs that produced no usable data
	emptyRuns int

	// Consecutive healthy runs in half-open state
	successCount int

	// Healthy runs required to close the circuit again
	successThreshold int

	onTrip func(reason string)

	mu sync.RWMutex
}

// New creates a Breaker with the provided thresholds.
func New(t Thresholds, resetDelay time.Duration) *Breaker {
	if t.MaxConsecutiveEmpty <= 0 {
		t.MaxConsecutiveEmpty = 3
	}
	return &Breaker{
		thresholds:       t,
		state:            StateClosed,
		resetDelay:       resetDelay,
		successThreshold: 3,
	}
}

// WithTripCallback sets a callback invoked when the circuit trips.
func (b *Breaker) WithTripCallback(fn func(reason string)) *Breaker {
	b.onTrip = fn
	return b
}

// Allow reports whether a new analysis request may proceed. An open
// circuit transitions to half-open after the reset delay.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if time.Since(b.lastTrip) > b.resetDelay {
			b.state = StateHalfOpen
			b.successCount = 0
			logrus.Info("Circuit breaker half-open: probing provider health")
		} else {
			return errors.New("circuit breaker open: upstream providers unavailable")
		}
	}
	return nil
}

// Observe records the outcome of one completed run: how many providers
// contributed data. It trips the circuit after too many consecutive empty
// runs and closes it again after enough healthy ones.
func (b *Breaker) Observe(sourcesUsed int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sourcesUsed < b.thresholds.MinSources {
		b.emptyRuns++
		b.successCount = 0
		if b.emptyRuns >= b.thresholds.MaxConsecutiveEmpty && b.state != StateOpen {
			reason := fmt.Sprintf("%d consecutive runs with fewer than %d data sources",
				b.emptyRuns, b.thresholds.MinSources)
			b.trip(reason)
		}
		return
	}

	b.emptyRuns = 0
	if b.state == StateHalfOpen {
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.state = StateClosed
			b.successCount = 0
			logrus.Info("Circuit breaker closed: providers have recovered")
		}
	}
}

// GetState returns the current state of the circuit breaker
func (b *Breaker) GetState() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Reset forces the circuit back to closed. Exposed for the operations
// endpoint.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.emptyRuns = 0
	b.successCount = 0
	logrus.Info("Circuit breaker manually reset")
}

// trip opens the circuit. Caller must hold the lock.
func (b *Breaker) trip(reason string) {
	b.state = StateOpen
	b.lastTrip = time.Now()
	logrus.Warnf("Circuit breaker tripped: %s", reason)
	if b.onTrip != nil {
		b.onTrip(reason)
	}
}
