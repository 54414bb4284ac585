// Package conditions maintains metav1.Condition lists on rollout status.
package conditions

import (
	"time"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// FindCondition returns the condition with the given type, or nil.
func FindCondition(conditions []metav1.Condition, conditionType v1alpha1.ConditionType) *metav1.Condition {
	for i := range conditions {
		if conditions[i].Type == string(conditionType) {
			return &conditions[i]
		}
	}
	return nil
}

// IsTrue reports whether the condition is present with status True.
func IsTrue(conditions []metav1.Condition, conditionType v1alpha1.ConditionType) bool {
	c := FindCondition(conditions, conditionType)
	return c != nil && c.Status == metav1.ConditionTrue
}

// Set adds or updates a condition observed at now. LastTransitionTime only
// moves when the status flips. Returns true when anything changed.
func Set(conditions *[]metav1.Condition, condition metav1.Condition, now time.Time) bool {
	condition.LastTransitionTime = metav1.NewTime(now)

	for i := range *conditions {
		existing := &(*conditions)[i]
		if existing.Type != condition.Type {
			continue
		}
		if existing.Status == condition.Status {
			if existing.Reason == condition.Reason && existing.Message == condition.Message {
				return false
			}
			condition.LastTransitionTime = existing.LastTransitionTime
		}
		*existing = condition
		return true
	}

	*conditions = append(*conditions, condition)
	return true
}

// MarkTrue sets the given condition type to True.
func MarkTrue(conditions *[]metav1.Condition, conditionType v1alpha1.ConditionType, reason, message string, now time.Time) bool {
	return Set(conditions, metav1.Condition{
		Type:    string(conditionType),
		Status:  metav1.ConditionTrue,
		Reason:  reason,
		Message: message,
	}, now)
}

// MarkFalse sets the given condition type to False.
func MarkFalse(conditions *[]metav1.Condition, conditionType v1alpha1.ConditionType, reason, message string, now time.Time) bool {
	return Set(conditions, metav1.Condition{
		Type:    string(conditionType),
		Status:  metav1.ConditionFalse,
		Reason:  reason,
		Message: message,
	}, now)
}
