package engine

import (
	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/apollo/fleetrollout/pkg/conditions"
)

// Devices move through the pipeline first in, first out, so each stage
// occupies a contiguous range of the rollout's ordered device list:
//
//	finished | installing | downloading | notified | scheduled | not admitted
//
// The identifiers affected by a move are therefore derived from counts alone.

// stepSize is the number of devices moved by one stage transition.
func (tx *txn) stepSize() int {
	r := tx.rollout
	base := r.TotalDevices
	if r.ScheduleType == v1alpha1.SchedulePhased {
		base = r.Stages.Active()
	}
	return max(1, int(float64(base)*tx.engine.policy.StepFraction))
}

// devices returns the identifiers in [start, start+n) of the device list.
func (tx *txn) devices(start, n int) []string {
	ids := tx.entry.deviceIDs
	end := min(start+n, len(ids))
	if start >= end {
		return nil
	}
	return ids[start:end]
}

// advanceStage performs the single highest priority stage move. It reports
// whether any device moved.
func (tx *txn) advanceStage() bool {
	r := tx.rollout
	s := &r.Stages
	step := tx.stepSize()

	installingAt := s.Finished()
	downloadingAt := installingAt + s.Installing
	notifiedAt := downloadingAt + s.Downloading
	scheduledAt := notifiedAt + s.Notified

	switch {
	case s.Scheduled > 0:
		moved := min(step, s.Scheduled)
		s.Scheduled -= moved
		s.Notified += moved
		if r.StartedAt == nil {
			r.StartedAt = tx.stamp()
		}
		r.Status = v1alpha1.RolloutInProgress
		tx.logDevices(tx.devices(scheduledAt, moved), v1alpha1.StageNotified, v1alpha1.DeviceEventSuccess)
	case s.Notified > 0:
		moved := min(step, s.Notified)
		s.Notified -= moved
		s.Downloading += moved
		tx.logDevices(tx.devices(notifiedAt, moved), v1alpha1.StageDownloadStarted, v1alpha1.DeviceEventSuccess)
	case s.Downloading > 0:
		moved := min(step, s.Downloading)
		s.Downloading -= moved
		s.Installing += moved
		tx.logDevices(tx.devices(downloadingAt, moved), v1alpha1.StageDownloadCompleted, v1alpha1.DeviceEventSuccess)
	case s.Installing > 0:
		moved := min(step, s.Installing)
		tx.install(tx.devices(installingAt, moved), moved)
	default:
		return false
	}

	conditions.MarkTrue(&r.Conditions, v1alpha1.ConditionProgressing, v1alpha1.ReasonStageAdvanced, "", tx.now)
	tx.touch()
	return true
}

// install finishes moved devices from the installing stage. A fixed share
// fails; which devices fail and why is drawn from the rollout's own RNG.
func (tx *txn) install(ids []string, moved int) {
	s := &tx.rollout.Stages
	policy := tx.engine.policy
	failCount := int(float64(moved) * policy.InstallFailureRate)

	s.Installing -= moved
	s.Completed += moved - failCount
	s.Failed += failCount

	failing := make(map[int]bool, failCount)
	if failCount > 0 {
		for _, i := range tx.entry.rng.Perm(moved)[:failCount] {
			failing[i] = true
		}
	}

	var succeeded, failed, reasons []string
	for i, id := range ids {
		if !failing[i] {
			succeeded = append(succeeded, id)
			continue
		}
		failed = append(failed, id)
		reasons = append(reasons, policy.FailureReasons[tx.entry.rng.IntN(len(policy.FailureReasons))])
	}
	tx.logDevices(succeeded, v1alpha1.StageInstallCompleted, v1alpha1.DeviceEventSuccess)
	tx.logFailures(failed, reasons)
}

// completeIfDone moves a rollout whose devices have all finished into the
// completed state.
func (tx *txn) completeIfDone() {
	r := tx.rollout
	if r.IsTerminal() || r.Stages.Finished() != r.TotalDevices {
		return
	}
	r.Status = v1alpha1.RolloutCompleted
	r.CompletedAt = tx.stamp()
	conditions.MarkFalse(&r.Conditions, v1alpha1.ConditionProgressing, v1alpha1.ReasonCompleted, "", tx.now)
	tx.appendAudit(v1alpha1.AuditCompleted, v1alpha1.SystemActor)
}
