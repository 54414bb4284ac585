// Copyright 2025 Apollo
// SPDX-License-Identifier: Apache-2.0

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Role is the identity class of the actor issuing a command.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleOps     Role = "OPS"
	RoleAnalyst Role = "ANALYST"
)

// ScheduleType enumerates how a rollout starts admitting devices.
// +kubebuilder:validation:Enum=immediate;scheduled;phased
type ScheduleType string

const (
	ScheduleImmediate ScheduleType = "immediate"
	ScheduleScheduled ScheduleType = "scheduled"
	SchedulePhased    ScheduleType = "phased"
)

// RolloutState is the lifecycle status of a rollout. Pausing is tracked
// separately in Rollout.IsPaused.
// +kubebuilder:validation:Enum=pending_approval;scheduled;in_progress;completed;cancelled
type RolloutState string

const (
	RolloutPendingApproval RolloutState = "pending_approval"
	RolloutScheduled       RolloutState = "scheduled"
	RolloutInProgress      RolloutState = "in_progress"
	RolloutCompleted       RolloutState = "completed"
	RolloutCancelled       RolloutState = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s RolloutState) IsTerminal() bool {
	return s == RolloutCompleted || s == RolloutCancelled
}

// RolloutSpec is the declarative request used to create a rollout.
type RolloutSpec struct {
	// Name is a human readable label.
	// +kubebuilder:validation:MaxLength=253
	Name string `json:"name,omitempty" validate:"max=253"`
	// FromVersion is the version devices are expected to run today.
	FromVersion string `json:"fromVersion,omitempty"`
	// ToVersion is the version devices are moved to. Must be higher than FromVersion when both are set.
	ToVersion string `json:"toVersion,omitempty"`
	// Region the targeted devices belong to.
	Region string `json:"region,omitempty"`
	// DeviceGroup the targeted devices belong to.
	DeviceGroup string `json:"deviceGroup,omitempty"`
	// TotalDevices is the number of devices matching the filter at creation time.
	// Derived from DeviceIDs when left at zero.
	TotalDevices int `json:"totalDevices,omitempty" validate:"gte=0"`
	// DeviceIDs optionally lists the matched devices as supplied by the inventory.
	DeviceIDs []string `json:"deviceIds,omitempty" validate:"omitempty,unique,dive,required"`
	// Mandatory marks the update as non-skippable. Honoured only for ADMIN creators.
	Mandatory bool `json:"mandatory,omitempty"`
	// ScheduleType selects immediate, scheduled or phased admission.
	// +kubebuilder:default=immediate
	ScheduleType ScheduleType `json:"scheduleType,omitempty" validate:"omitempty,oneof=immediate scheduled phased"`
	// ScheduledAt is the start time for scheduled rollouts.
	ScheduledAt *metav1.Time `json:"scheduledAt,omitempty"`
	// PhasedPercentage is the share of the fleet admitted per phase.
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=100
	PhasedPercentage int `json:"phasedPercentage,omitempty" validate:"required_if=ScheduleType phased,gte=0,lte=100"`
	// PhasedIntervalMinutes is the delay between phases.
	// +kubebuilder:validation:Minimum=1
	PhasedIntervalMinutes int `json:"phasedIntervalMinutes,omitempty" validate:"required_if=ScheduleType phased,gte=0"`
	// CreatedByRole is the resolved role of the creator.
	CreatedByRole Role `json:"createdByRole" validate:"required,oneof=ADMIN OPS ANALYST"`
	// CreatedBy is the creator's identity.
	CreatedBy string `json:"createdBy,omitempty"`
}

// StageCounts is the number of devices in each pipeline bucket.
type StageCounts struct {
	Scheduled   int `json:"scheduled"`
	Notified    int `json:"notified"`
	Downloading int `json:"downloading"`
	Installing  int `json:"installing"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
}

// Sum returns the number of admitted devices.
func (s StageCounts) Sum() int {
	return s.Active() + s.Finished()
}

// Active returns the number of admitted devices that have not finished.
func (s StageCounts) Active() int {
	return s.Scheduled + s.Notified + s.Downloading + s.Installing
}

// Finished returns the number of devices that reached a terminal stage.
func (s StageCounts) Finished() int {
	return s.Completed + s.Failed
}

// Rollout is one declarative update campaign and its progress.
type Rollout struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	FromVersion string `json:"fromVersion,omitempty"`
	ToVersion   string `json:"toVersion,omitempty"`
	Region      string `json:"region,omitempty"`
	DeviceGroup string `json:"deviceGroup,omitempty"`
	// TotalDevices is fixed at creation.
	TotalDevices int `json:"totalDevices"`

	Mandatory             bool         `json:"mandatory"`
	ScheduleType          ScheduleType `json:"scheduleType"`
	ScheduledAt           *metav1.Time `json:"scheduledAt,omitempty"`
	PhasedPercentage      int          `json:"phasedPercentage,omitempty"`
	PhasedIntervalMinutes int          `json:"phasedIntervalMinutes,omitempty"`
	CreatedByRole         Role         `json:"createdByRole"`
	CreatedBy             string       `json:"createdBy,omitempty"`

	// Stages holds admitted devices. Stages.Sum()+RemainingDevices always equals TotalDevices.
	Stages StageCounts `json:"stages"`
	// CurrentPhase counts released phases of a phased rollout.
	CurrentPhase int `json:"currentPhase"`
	// NextPhaseAt is when the next phase may be released.
	NextPhaseAt *metav1.Time `json:"nextPhaseAt,omitempty"`
	// RemainingDevices have not been admitted yet. Always zero for non-phased rollouts.
	RemainingDevices int `json:"remainingDevices"`

	Status   RolloutState `json:"status"`
	IsPaused bool         `json:"isPaused"`
	// Progress is the finished share of the fleet in percent.
	Progress int `json:"progress"`

	CreatedAt   metav1.Time  `json:"createdAt"`
	ApprovedAt  *metav1.Time `json:"approvedAt,omitempty"`
	StartedAt   *metav1.Time `json:"startedAt,omitempty"`
	PausedAt    *metav1.Time `json:"pausedAt,omitempty"`
	ResumedAt   *metav1.Time `json:"resumedAt,omitempty"`
	CompletedAt *metav1.Time `json:"completedAt,omitempty"`
	CancelledAt *metav1.Time `json:"cancelledAt,omitempty"`

	// Conditions track approval and advancement.
	Conditions []metav1.Condition `json:"conditions,omitempty"`
	// AuditLog is the append-only lifecycle history.
	AuditLog []AuditEntry `json:"auditLog"`
}

// IsTerminal reports whether the rollout reached completed or cancelled.
func (r *Rollout) IsTerminal() bool {
	return r.Status.IsTerminal()
}
