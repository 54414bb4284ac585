package engine

import (
	"fmt"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/apollo/fleetrollout/pkg/conditions"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PauseRollout freezes all advancement of a rollout, phase admission
// included. Already paused or terminal rollouts are returned unchanged.
func (e *Engine) PauseRollout(id, actor string) (*v1alpha1.Rollout, error) {
	return e.update(id, func(tx *txn) error {
		r := tx.rollout
		if r.IsPaused || r.IsTerminal() {
			return nil
		}
		r.IsPaused = true
		r.PausedAt = tx.stamp()
		conditions.MarkFalse(&r.Conditions, v1alpha1.ConditionProgressing, v1alpha1.ReasonPaused, fmt.Sprintf("paused by %s", actorName(actor)), tx.now)
		tx.appendAudit(v1alpha1.AuditPaused, actor)
		return nil
	})
}

// ResumeRollout lifts a pause. The next tick picks the rollout up again.
// Terminal rollouts stay as they are, even when they were cancelled while
// paused.
func (e *Engine) ResumeRollout(id, actor string) (*v1alpha1.Rollout, error) {
	return e.update(id, func(tx *txn) error {
		r := tx.rollout
		if !r.IsPaused || r.IsTerminal() {
			return nil
		}
		if e.policy.ShiftPhaseOnResume && r.NextPhaseAt != nil && r.PausedAt != nil {
			shifted := r.NextPhaseAt.Add(tx.now.Sub(r.PausedAt.Time))
			r.NextPhaseAt = &metav1.Time{Time: shifted}
		}
		r.IsPaused = false
		r.ResumedAt = tx.stamp()
		msg := fmt.Sprintf("resumed by %s", actorName(actor))
		if r.Status == v1alpha1.RolloutInProgress {
			conditions.MarkTrue(&r.Conditions, v1alpha1.ConditionProgressing, v1alpha1.ReasonResumed, msg, tx.now)
		} else {
			conditions.MarkFalse(&r.Conditions, v1alpha1.ConditionProgressing, v1alpha1.ReasonAwaitingStart, msg, tx.now)
		}
		tx.appendAudit(v1alpha1.AuditResumed, actor)
		return nil
	})
}

// CancelRollout stops a rollout for good. In-flight stage counts are kept
// as they are; the pipeline simply stops moving them. Cancelling a
// completed or already cancelled rollout is a no-op.
func (e *Engine) CancelRollout(id, actor string) (*v1alpha1.Rollout, error) {
	return e.update(id, func(tx *txn) error {
		r := tx.rollout
		if r.IsTerminal() {
			return nil
		}
		r.Status = v1alpha1.RolloutCancelled
		r.CancelledAt = tx.stamp()
		conditions.MarkFalse(&r.Conditions, v1alpha1.ConditionProgressing, v1alpha1.ReasonCancelled, fmt.Sprintf("cancelled by %s", actorName(actor)), tx.now)
		tx.appendAudit(v1alpha1.AuditCancelled, actor)
		return nil
	})
}
