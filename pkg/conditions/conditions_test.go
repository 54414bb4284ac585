package conditions

import (
	"testing"
	"time"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestSetPreservesTransitionTimeWhenStatusUnchanged(t *testing.T) {
	var conds []metav1.Condition
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if !MarkTrue(&conds, v1alpha1.ConditionProgressing, v1alpha1.ReasonStageAdvanced, "notified 2", t0) {
		t.Fatalf("expected first mark to report a change")
	}
	if !MarkTrue(&conds, v1alpha1.ConditionProgressing, v1alpha1.ReasonStageAdvanced, "notified 4", t0.Add(time.Second)) {
		t.Fatalf("expected message change to report a change")
	}
	got := FindCondition(conds, v1alpha1.ConditionProgressing)
	if got == nil || !got.LastTransitionTime.Time.Equal(t0) {
		t.Fatalf("expected transition time %v, got %+v", t0, got)
	}

	if !MarkFalse(&conds, v1alpha1.ConditionProgressing, v1alpha1.ReasonPaused, "paused", t0.Add(2*time.Second)) {
		t.Fatalf("expected status flip to report a change")
	}
	got = FindCondition(conds, v1alpha1.ConditionProgressing)
	if !got.LastTransitionTime.Time.Equal(t0.Add(2 * time.Second)) {
		t.Fatalf("expected transition time to move on status flip, got %v", got.LastTransitionTime)
	}
	if len(conds) != 1 {
		t.Fatalf("expected a single condition, got %d", len(conds))
	}
}

func TestSetIsNoopForIdenticalCondition(t *testing.T) {
	var conds []metav1.Condition
	now := time.Now()
	MarkTrue(&conds, v1alpha1.ConditionApproved, v1alpha1.ReasonApproved, "approved by root", now)
	if MarkTrue(&conds, v1alpha1.ConditionApproved, v1alpha1.ReasonApproved, "approved by root", now.Add(time.Minute)) {
		t.Fatalf("expected identical condition to be a no-op")
	}
	if !IsTrue(conds, v1alpha1.ConditionApproved) {
		t.Fatalf("expected Approved to be true")
	}
}
