package engine

import (
	"sort"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
)

// GetDeviceTimeline merges the events of one device across every rollout it
// took part in, oldest first. Events with equal timestamps keep rollout
// creation order and, within a rollout, append order.
func (e *Engine) GetDeviceTimeline(deviceID string) []v1alpha1.DeviceEvent {
	var events []v1alpha1.DeviceEvent
	for _, ent := range e.entries() {
		ent.mu.Lock()
		events = append(events, ent.deviceLog[deviceID]...)
		ent.mu.Unlock()
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(&events[j].Timestamp)
	})
	return events
}

// FailedDevices lists the devices of a rollout that failed installation, in
// the order they failed.
func (e *Engine) FailedDevices(rolloutID string) ([]v1alpha1.FailedDevice, error) {
	ent, err := e.lookup(rolloutID)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return append([]v1alpha1.FailedDevice{}, ent.failed...), nil
}

// DeviceIDs returns the ordered device identifiers resolved for a rollout.
func (e *Engine) DeviceIDs(rolloutID string) ([]string, error) {
	ent, err := e.lookup(rolloutID)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return append([]string{}, ent.deviceIDs...), nil
}
