package engine

import (
	"fmt"
	"sync"
	"time"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// AdvanceTick runs one advancement pass over every rollout. Rollouts are
// advanced in parallel and independently: a rollout that fails is rolled
// back to its state before the pass and reported in the returned aggregate,
// while the others still advance.
func (e *Engine) AdvanceTick() error {
	start := time.Now()
	defer func() { tickDuration.Observe(time.Since(start).Seconds()) }()

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(e.policy.TickConcurrency)
	for _, ent := range e.entries() {
		g.Go(func() error {
			if err := e.advance(ent); err != nil {
				tickErrors.Inc()
				e.log.Error(err, "advancing rollout failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return utilerrors.NewAggregate(errs)
}

// advance applies one tick to a single rollout under its lock.
func (e *Engine) advance(ent *entry) (err error) {
	ent.mu.Lock()
	defer ent.mu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("rollout %s: panic during advance: %v", ent.rollout.ID, p)
		}
	}()

	tx := e.begin(ent)
	if !eligible(tx.rollout, tx.now) {
		return nil
	}
	tx.releasePhase()
	tx.advanceStage()
	tx.completeIfDone()
	return e.commit(ent, tx)
}

// eligible reports whether the tick should touch r at all.
func eligible(r *v1alpha1.Rollout, now time.Time) bool {
	if r.IsPaused {
		return false
	}
	switch r.Status {
	case v1alpha1.RolloutScheduled, v1alpha1.RolloutInProgress:
	default:
		return false
	}
	if r.ScheduleType == v1alpha1.ScheduleScheduled && r.ScheduledAt != nil && now.Before(r.ScheduledAt.Time) {
		return false
	}
	return true
}
