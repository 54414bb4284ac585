package engine

import (
	"fmt"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/apollo/fleetrollout/pkg/conditions"
)

// ApproveRollout releases a rollout waiting for approval. Any other status
// is left untouched. Checking that actor may approve is up to the caller.
func (e *Engine) ApproveRollout(id, actor string) (*v1alpha1.Rollout, error) {
	return e.update(id, func(tx *txn) error {
		r := tx.rollout
		if r.Status != v1alpha1.RolloutPendingApproval {
			return nil
		}
		r.Status = v1alpha1.RolloutScheduled
		r.ApprovedAt = tx.stamp()
		conditions.MarkTrue(&r.Conditions, v1alpha1.ConditionApproved, v1alpha1.ReasonApproved, fmt.Sprintf("approved by %s", actorName(actor)), tx.now)
		tx.appendAudit(v1alpha1.AuditApproved, actor)
		return nil
	})
}

func actorName(actor string) string {
	if actor == "" {
		return unknownActor
	}
	return actor
}
