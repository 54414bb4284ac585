package engine

import (
	"fmt"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/apollo/fleetrollout/pkg/conditions"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// batchSize is the number of devices released per phase, rounded up.
func batchSize(total, percentage int) int {
	return (total*percentage + 99) / 100
}

// releasePhase admits the next batch of a phased rollout into the pipeline
// when its release time has arrived. It reports whether devices were admitted.
func (tx *txn) releasePhase() bool {
	r := tx.rollout
	if r.ScheduleType != v1alpha1.SchedulePhased {
		return false
	}
	if r.NextPhaseAt == nil {
		r.NextPhaseAt = tx.stamp()
		tx.touch()
	}
	if r.RemainingDevices == 0 || tx.now.Before(r.NextPhaseAt.Time) {
		return false
	}

	release := min(batchSize(r.TotalDevices, r.PhasedPercentage), r.RemainingDevices)
	r.Stages.Scheduled += release
	r.RemainingDevices -= release
	r.CurrentPhase++
	r.NextPhaseAt = &metav1.Time{Time: tx.now.Add(tx.engine.policy.phaseInterval(r.PhasedIntervalMinutes))}
	conditions.MarkTrue(&r.Conditions, v1alpha1.ConditionProgressing, v1alpha1.ReasonPhaseReleased,
		fmt.Sprintf("phase %d admitted %d devices", r.CurrentPhase, release), tx.now)
	tx.touch()
	return true
}
