package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type slowAdvancer struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
	delay    time.Duration
	err      error
}

func (a *slowAdvancer) AdvanceTick() error {
	if a.inFlight.Add(1) > 1 {
		a.overlap.Store(true)
	}
	defer a.inFlight.Add(-1)
	a.calls.Add(1)
	time.Sleep(a.delay)
	return a.err
}

func TestSchedulerPassesDoNotOverlap(t *testing.T) {
	adv := &slowAdvancer{delay: 15 * time.Millisecond}
	s := New(adv, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if adv.overlap.Load() {
		t.Fatalf("advancement passes overlapped")
	}
	if n := adv.calls.Load(); n < 2 {
		t.Fatalf("expected repeated passes, got %d", n)
	}
}

func TestSchedulerSurvivesPassErrors(t *testing.T) {
	adv := &slowAdvancer{err: errors.New("rollout r-1 rolled back")}
	s := New(adv, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if n := adv.calls.Load(); n < 2 {
		t.Fatalf("scheduler stopped after a failing pass, calls=%d", n)
	}
}

func TestSchedulerDefaultInterval(t *testing.T) {
	if s := New(&slowAdvancer{}, 0); s.interval != DefaultInterval {
		t.Fatalf("interval = %v, want %v", s.interval, DefaultInterval)
	}
	if (&Scheduler{}).NeedLeaderElection() {
		t.Fatalf("scheduler should not require leader election")
	}
}
