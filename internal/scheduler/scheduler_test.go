package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/scheduler"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	offset atomic.Int64
	t0     time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t0: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.t0.Add(time.Duration(c.offset.Load()))
}

func (c *fakeClock) Advance(d time.Duration) {
	c.offset.Add(int64(d))
}

func TestSchedulerRateLimit(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := scheduler.New(2*time.Second, scheduler.WithClock(clock.Now))

	var runs int
	body := func(context.Context) error {
		runs++
		return nil
	}

	if !s.Run(context.Background(), false, body) {
		t.Fatal("first request should be admitted")
	}
	if s.Run(context.Background(), false, body) {
		t.Fatal("request inside the rate-limit window should be dropped")
	}

	clock.Advance(1999 * time.Millisecond)
	if s.Run(context.Background(), false, body) {
		t.Fatal("request just inside the window should be dropped")
	}

	clock.Advance(1 * time.Millisecond)
	if !s.Run(context.Background(), false, body) {
		t.Fatal("request after the window should be admitted")
	}

	if runs != 2 {
		t.Fatalf("expected 2 executions, got %d", runs)
	}
}

func TestSchedulerForceBypassesRateLimit(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := scheduler.New(2*time.Second, scheduler.WithClock(clock.Now))

	noop := func(context.Context) error { return nil }

	if !s.Run(context.Background(), false, noop) {
		t.Fatal("first request should be admitted")
	}
	if !s.Run(context.Background(), true, noop) {
		t.Fatal("forced request should bypass the rate limit")
	}
}

func TestSchedulerRejectsWhileSyncing(t *testing.T) {
	t.Parallel()

	s := scheduler.New(time.Millisecond)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan bool)

	go func() {
		done <- s.Run(context.Background(), true, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	if !s.Syncing() {
		t.Fatal("scheduler should report syncing while the body runs")
	}

	// Mutual exclusion wins over force.
	if s.Run(context.Background(), true, func(context.Context) error { return nil }) {
		t.Fatal("forced request should be dropped while a sync is in flight")
	}

	close(release)
	if !<-done {
		t.Fatal("in-flight sync should report admitted")
	}
	if s.Syncing() {
		t.Fatal("scheduler should return to idle after the body finishes")
	}
}

func TestSchedulerRecoversAfterFailure(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := scheduler.New(2*time.Second, scheduler.WithClock(clock.Now))

	admitted := s.Run(context.Background(), true, func(context.Context) error {
		return errors.New("remote unavailable")
	})
	if !admitted {
		t.Fatal("failing sync should still report admitted")
	}
	if s.Syncing() {
		t.Fatal("scheduler must return to idle after a failed sync")
	}
	if !s.Run(context.Background(), true, func(context.Context) error { return nil }) {
		t.Fatal("scheduler should admit the next forced request after a failure")
	}
}

func TestSchedulerRecoversAfterPanic(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := scheduler.New(2*time.Second, scheduler.WithClock(clock.Now))

	admitted := s.Run(context.Background(), true, func(context.Context) error {
		panic("sync body exploded")
	})
	if !admitted {
		t.Fatal("panicking sync should still report admitted")
	}
	if s.Syncing() {
		t.Fatal("scheduler must return to idle after a panicking sync")
	}
	if !s.Run(context.Background(), true, func(context.Context) error { return nil }) {
		t.Fatal("scheduler should admit the next forced request after a panic")
	}
}

func TestDebouncerCollapsesBursts(t *testing.T) {
	t.Parallel()

	d := scheduler.NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var fired atomic.Int32
	for range 5 {
		d.Trigger(func() { fired.Add(1) })
	}

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// Give a superseded trigger the chance to misfire before counting.
	time.Sleep(50 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Fatalf("expected exactly one trailing execution, got %d", got)
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	t.Parallel()

	d := scheduler.NewDebouncer(20 * time.Millisecond)

	var fired atomic.Int32
	d.Trigger(func() { fired.Add(1) })
	d.Stop()

	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("expected no execution after Stop, got %d", got)
	}
}
