// Package resilience guards the external lookups (web search, detail pages)
// with circuit breakers and bounded retries.
package resilience

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is the state of a Breaker.
type State int

const (
	// Closed lets calls through.
	Closed State = iota
	// Open rejects calls until the reset timeout elapses.
	Open
	// HalfOpen lets probe calls through.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when a call is rejected by an open breaker.
var ErrOpen = eris.New("circuit breaker is open")

// BreakerConfig controls a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Default 5.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open. Default 60s.
	ResetTimeout time.Duration
	// Probes is the number of successful half-open calls needed to close.
	// Default 1.
	Probes int
	// ShouldTrip decides whether an error counts as a failure. Nil counts
	// every error except context cancellation.
	ShouldTrip func(err error) bool
	// OnStateChange is called with the breaker name on every transition.
	OnStateChange func(name string, from, to State)
}

// Defaults for BreakerConfig.
const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 60 * time.Second
)

// NewBreakerConfig builds a config from the integer settings in the config
// file; non-positive values keep the defaults.
func NewBreakerConfig(failureThreshold, resetTimeoutSecs int) BreakerConfig {
	cfg := BreakerConfig{
		FailureThreshold: DefaultFailureThreshold,
		ResetTimeout:     DefaultResetTimeout,
		Probes:           1,
	}
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}

// Breaker is a circuit breaker for one external capability.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	successes int

	now func() time.Time
}

// NewBreaker creates a closed Breaker.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name returns the capability name.
func (b *Breaker) Name() string { return b.name }

// Execute runs fn unless the breaker is open, in which case it returns
// ErrOpen without calling fn.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// Call is Execute for functions that return a value.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.record(err)
	if err != nil {
		return zero, err
	}
	return v, nil
}

// State reports the current state. An open breaker whose timeout has elapsed
// reports HalfOpen.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return HalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.successes = 0
	if b.state != Closed {
		b.setState(Closed)
	}
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return nil
	}
	if b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		b.setState(HalfOpen)
		return nil
	}
	return eris.Wrapf(ErrOpen, "resilience: %s", b.name)
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.trips(err) {
		switch b.state {
		case HalfOpen:
			b.successes++
			if b.successes >= b.cfg.Probes {
				b.failures = 0
				b.successes = 0
				b.setState(Closed)
			}
		case Closed:
			b.failures = 0
		}
		return
	}

	b.failures++
	switch b.state {
	case Closed:
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.setState(Open)
		}
	case HalfOpen:
		b.successes = 0
		b.openedAt = b.now()
		b.setState(Open)
	}
}

func (b *Breaker) trips(err error) bool {
	if b.cfg.ShouldTrip != nil {
		return b.cfg.ShouldTrip(err)
	}
	return !errors.Is(err, context.Canceled)
}

// setState must be called with mu held.
func (b *Breaker) setState(to State) {
	from := b.state
	b.state = to
	zap.L().Warn("resilience: breaker state changed",
		zap.String("breaker", b.name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}

// Set holds one Breaker per capability name, sharing a config.
type Set struct {
	cfg BreakerConfig

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewSet creates an empty Set.
func NewSet(cfg BreakerConfig) *Set {
	return &Set{cfg: cfg, breakers: make(map[string]*Breaker)}
}

// Get returns the named breaker, creating it on first use.
func (s *Set) Get(name string) *Breaker {
	s.mu.RLock()
	b, ok := s.breakers[name]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.breakers[name]; ok {
		return b
	}
	b = NewBreaker(name, s.cfg)
	s.breakers[name] = b
	return b
}

// Names returns the breaker names in sorted order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.breakers))
	for n := range s.breakers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// States snapshots every breaker's state.
func (s *Set) States() map[string]State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]State, len(s.breakers))
	for n, b := range s.breakers {
		out[n] = b.State()
	}
	return out
}
