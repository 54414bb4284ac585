// Copyright 2025 Apollo
// SPDX-License-Identifier: Apache-2.0

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// AuditAction enumerates rollout lifecycle actions.
type AuditAction string

const (
	AuditCreated   AuditAction = "CREATED"
	AuditApproved  AuditAction = "APPROVED"
	AuditPaused    AuditAction = "PAUSED"
	AuditResumed   AuditAction = "RESUMED"
	AuditCancelled AuditAction = "CANCELLED"
	AuditCompleted AuditAction = "COMPLETED"
)

// SystemActor performs transitions driven by the tick loop.
const SystemActor = "system"

// AuditEntry records one lifecycle action on a rollout.
type AuditEntry struct {
	ID          string           `json:"id"`
	Action      AuditAction      `json:"action"`
	PerformedBy string           `json:"performedBy"`
	Timestamp   metav1.MicroTime `json:"timestamp"`
}

// DeviceStage names a per-device pipeline event.
type DeviceStage string

const (
	StageNotified          DeviceStage = "Notified"
	StageDownloadStarted   DeviceStage = "Download Started"
	StageDownloadCompleted DeviceStage = "Download Completed"
	StageInstallCompleted  DeviceStage = "Install Completed"
	StageInstallFailed     DeviceStage = "Install Failed"
)

// DeviceEventStatus is the outcome of a device event.
type DeviceEventStatus string

const (
	DeviceEventSuccess DeviceEventStatus = "success"
	DeviceEventFailed  DeviceEventStatus = "failed"
)

// DeviceEvent is one step in a device's update timeline.
type DeviceEvent struct {
	DeviceID      string            `json:"deviceId"`
	RolloutID     string            `json:"rolloutId"`
	Stage         DeviceStage       `json:"stage"`
	Timestamp     metav1.MicroTime  `json:"timestamp"`
	Status        DeviceEventStatus `json:"status"`
	FailureReason string            `json:"failureReason,omitempty"`
}

// FailedDevice summarises a device that failed installation.
type FailedDevice struct {
	DeviceID  string           `json:"deviceId"`
	Stage     DeviceStage      `json:"stage"`
	Reason    string           `json:"reason"`
	Timestamp metav1.MicroTime `json:"timestamp"`
}
