// Copyright 2025 Apollo
// SPDX-License-Identifier: Apache-2.0

package v1alpha1

// RolloutList is returned when listing rollouts.
type RolloutList struct {
	Items []Rollout `json:"items"`
}

// DeviceTimeline is the merged event history of one device.
type DeviceTimeline struct {
	DeviceID string        `json:"deviceId"`
	Events   []DeviceEvent `json:"events"`
}

// FailedDeviceList lists the failed installs of one rollout.
type FailedDeviceList struct {
	RolloutID string         `json:"rolloutId"`
	Items     []FailedDevice `json:"items"`
}
