// Package scheduler owns the decision of when a synchronization runs.
//
// A [Scheduler] is a two-state machine (Idle ↔ Syncing) guarding one logical
// sync scope. Admission applies two layers: mutual exclusion while a sync is
// in flight, and a rate limit between consecutive runs. Rejected requests are
// dropped silently — there is no queue, because a later UI action naturally
// triggers another attempt. A [Debouncer] adds the third layer, collapsing
// rapid trigger bursts into a single trailing-edge execution.
//
// The system runs two independent Scheduler instances (roster/world scope and
// party scope); nothing orders them relative to each other.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultRateLimit is the minimum spacing between unforced syncs in a scope.
const DefaultRateLimit = 2000 * time.Millisecond

// DefaultDebounce is the trailing-edge quiet period for UI-driven triggers.
const DefaultDebounce = 1000 * time.Millisecond

// Scheduler serialises sync executions for one scope. Create instances with
// [New]; the zero value is not usable.
type Scheduler struct {
	mu        sync.Mutex
	syncing   bool
	lastRun   time.Time
	rateLimit time.Duration

	now    func() time.Time
	logger *slog.Logger
}

// Option customises a [Scheduler].
type Option func(*Scheduler)

// WithClock injects a time source, letting tests drive the rate-limit window
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger used for dropped requests and sync failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New returns a Scheduler enforcing the given rate limit. A non-positive
// rateLimit falls back to [DefaultRateLimit].
func New(rateLimit time.Duration, opts ...Option) *Scheduler {
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}
	s := &Scheduler{
		rateLimit: rateLimit,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes fn if the request is admitted and reports whether it ran.
//
// Admission rules, in order:
//   - a sync already in flight rejects the request, even when force is set;
//   - without force, a request inside the rate-limit window is rejected.
//
// The transition back to Idle happens in a deferred step, and a panicking
// sync body is recovered there, so fn can never leave the scheduler stuck in
// Syncing or tear down the process from a background goroutine. fn's error is
// logged, not returned: a failed background sync is silent to the caller by
// design.
func (s *Scheduler) Run(ctx context.Context, force bool, fn func(context.Context) error) (ran bool) {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		s.logger.Debug("sync request dropped: already syncing")
		return false
	}
	now := s.now()
	if !force && now.Sub(s.lastRun) < s.rateLimit {
		s.mu.Unlock()
		s.logger.Debug("sync request dropped: rate limited")
		return false
	}
	s.syncing = true
	s.lastRun = now
	s.mu.Unlock()

	ran = true
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync panicked", "panic", r)
		}
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	if err := fn(ctx); err != nil {
		s.logger.Warn("sync failed", "error", err)
	}
	return true
}

// Syncing reports whether a sync is currently in flight.
func (s *Scheduler) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// Debouncer collapses rapid trigger bursts into one trailing-edge execution.
// There is no leading-edge call; a later trigger supersedes an earlier one
// that has not fired yet. The zero value is not usable; create instances
// with [NewDebouncer].
type Debouncer struct {
	mu    sync.Mutex
	quiet time.Duration
	timer *time.Timer
}

// NewDebouncer returns a Debouncer with the given quiet period. A
// non-positive quiet period falls back to [DefaultDebounce].
func NewDebouncer(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultDebounce
	}
	return &Debouncer{quiet: quiet}
}

// Trigger schedules fn to run after the quiet period. Calling Trigger again
// before it fires discards the previous fn and restarts the period.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, fn)
}

// Stop cancels a pending trigger, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
