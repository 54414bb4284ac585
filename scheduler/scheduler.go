// Package scheduler drives the rollout engine at a fixed cadence.
package scheduler

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/manager"
)

// DefaultInterval is the pause between two advancement passes.
const DefaultInterval = 2 * time.Second

// Advancer runs one advancement pass. engine.Engine satisfies it.
type Advancer interface {
	AdvanceTick() error
}

// Scheduler invokes AdvanceTick periodically. The next period starts only
// after the previous pass has returned, so passes never overlap.
type Scheduler struct {
	advancer Advancer
	interval time.Duration
	log      logr.Logger
}

var (
	_ manager.Runnable               = &Scheduler{}
	_ manager.LeaderElectionRunnable = &Scheduler{}
)

// New returns a Scheduler. A non-positive interval selects DefaultInterval.
func New(advancer Advancer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		advancer: advancer,
		interval: interval,
		log:      ctrl.Log.WithName("scheduler"),
	}
}

// Start ticks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info("starting tick loop", "interval", s.interval.String())
	wait.UntilWithContext(ctx, s.tick, s.interval)
	s.log.Info("tick loop stopped")
	return nil
}

// NeedLeaderElection is false: the engine state is process local.
func (s *Scheduler) NeedLeaderElection() bool {
	return false
}

func (s *Scheduler) tick(_ context.Context) {
	if err := s.advancer.AdvanceTick(); err != nil {
		// Failed rollouts were rolled back; the rest of the pass went through.
		s.log.Error(err, "tick completed with errors")
	}
}
