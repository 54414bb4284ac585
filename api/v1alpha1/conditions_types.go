package v1alpha1

// ConditionType represents a typed condition name used on status conditions.
type ConditionType string

const (
	// Approval gating
	ConditionApproved ConditionType = "Approved"
	// Pipeline advancement
	ConditionProgressing ConditionType = "Progressing"
)

// Condition reasons.
const (
	ReasonApprovalNotRequired = "ApprovalNotRequired"
	ReasonPendingApproval     = "PendingApproval"
	ReasonApproved            = "Approved"

	ReasonAwaitingStart = "AwaitingStart"
	ReasonStageAdvanced = "StageAdvanced"
	ReasonPhaseReleased = "PhaseReleased"
	ReasonPaused        = "Paused"
	ReasonResumed       = "Resumed"
	ReasonCancelled     = "Cancelled"
	ReasonCompleted     = "Completed"
)
