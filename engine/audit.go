package engine

import (
	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const unknownActor = "unknown"

// appendAudit records a lifecycle action on the working copy.
func (tx *txn) appendAudit(action v1alpha1.AuditAction, actor string) {
	entry := v1alpha1.AuditEntry{
		ID:          tx.engine.newID(),
		Action:      action,
		PerformedBy: actorName(actor),
		Timestamp:   metav1.NewMicroTime(tx.now),
	}
	tx.rollout.AuditLog = append(tx.rollout.AuditLog, entry)
	tx.audit = append(tx.audit, entry)
	tx.touch()
}

// logDevices records one event per device in ids.
func (tx *txn) logDevices(ids []string, stage v1alpha1.DeviceStage, status v1alpha1.DeviceEventStatus) {
	ts := metav1.NewMicroTime(tx.now)
	for _, id := range ids {
		tx.events = append(tx.events, v1alpha1.DeviceEvent{
			DeviceID:  id,
			RolloutID: tx.rollout.ID,
			Stage:     stage,
			Timestamp: ts,
			Status:    status,
		})
	}
}

// logFailures records failed installs along with their reasons.
func (tx *txn) logFailures(ids, reasons []string) {
	ts := metav1.NewMicroTime(tx.now)
	for i, id := range ids {
		tx.events = append(tx.events, v1alpha1.DeviceEvent{
			DeviceID:      id,
			RolloutID:     tx.rollout.ID,
			Stage:         v1alpha1.StageInstallFailed,
			Timestamp:     ts,
			Status:        v1alpha1.DeviceEventFailed,
			FailureReason: reasons[i],
		})
		tx.failed = append(tx.failed, v1alpha1.FailedDevice{
			DeviceID:  id,
			Stage:     v1alpha1.StageInstallFailed,
			Reason:    reasons[i],
			Timestamp: ts,
		})
	}
}

// emit publishes logs and metrics for a committed transaction.
func (e *Engine) emit(tx *txn) {
	r := tx.rollout
	log := e.log.WithValues("rollout", r.ID)
	for _, a := range tx.audit {
		auditEntries.WithLabelValues(string(a.Action)).Inc()
		log.Info("audit", "action", a.Action, "performedBy", a.PerformedBy, "status", r.Status)
	}
	for _, ev := range tx.events {
		deviceTransitions.WithLabelValues(string(ev.Stage), string(ev.Status)).Inc()
	}
	if len(tx.events) > 0 {
		log.V(1).Info("devices advanced", "events", len(tx.events), "stages", r.Stages, "remaining", r.RemainingDevices)
	}
	recordStageGauges(r)
}
