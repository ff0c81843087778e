package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	// StateHalfOpen admits one probe call at a time.
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// CircuitBreaker stops calling a failing dependency for a cool-down period.
type CircuitBreaker interface {
	Call(ctx context.Context, fn func(ctx context.Context) error) error
	State() State
}

type Config struct {
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before a probe is allowed.
	Cooldown time.Duration
	// ProbeSuccesses successful probes close the circuit again.
	ProbeSuccesses int
	// OnStateChange runs outside the breaker lock.
	OnStateChange func(from, to State)
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	if c.ProbeSuccesses <= 0 {
		c.ProbeSuccesses = 1
	}
	return c
}

type breaker struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

// New returns a closed breaker. A nil config selects the defaults.
func New(cfg *Config) CircuitBreaker {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	return &breaker{cfg: c.withDefaults(), now: time.Now}
}

func (b *breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Call runs fn unless the circuit is open. Errors caused by ctx ending are
// returned without counting against the dependency.
func (b *breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, to, ok := b.admit()
	b.notify(from, to)
	if !ok {
		return ErrCircuitOpen
	}

	err := fn(ctx)

	from, to = b.record(err, ctx.Err() != nil)
	b.notify(from, to)
	return err
}

func (b *breaker) admit() (from, to State, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	from = b.state
	if b.state == StateOpen && !b.now().Before(b.openedAt.Add(b.cfg.Cooldown)) {
		b.state = StateHalfOpen
		b.successes = 0
	}

	switch b.state {
	case StateOpen:
		return from, b.state, false
	case StateHalfOpen:
		if b.probing {
			return from, b.state, false
		}
		b.probing = true
	}
	return from, b.state, true
}

func (b *breaker) record(err error, cancelled bool) (from, to State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	from = b.state
	wasProbe := b.state == StateHalfOpen
	b.probing = false

	switch {
	case err != nil && cancelled:
		// The caller gave up; say nothing about the dependency.
	case err != nil:
		b.failures++
		if wasProbe || b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	default:
		b.failures = 0
		if wasProbe {
			b.successes++
			if b.successes >= b.cfg.ProbeSuccesses {
				b.state = StateClosed
				b.successes = 0
			}
		}
	}
	return from, b.state
}

func (b *breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.successes = 0
}

func (b *breaker) notify(from, to State) {
	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
