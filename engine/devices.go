package engine

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

const defaultFleetSize = 10000

// DeviceIDSource supplies device identifiers for a rollout whose inventory
// only reported a count.
type DeviceIDSource interface {
	DeviceIDs(rolloutID string, n int) []string
}

// DeviceIDSourceFunc adapts a function to DeviceIDSource.
type DeviceIDSourceFunc func(rolloutID string, n int) []string

// DeviceIDs calls f.
func (f DeviceIDSourceFunc) DeviceIDs(rolloutID string, n int) []string {
	return f(rolloutID, n)
}

// FleetDeviceIDs draws distinct identifiers from a simulated fleet. The draw
// depends only on Seed and the rollout id, so it is reproducible.
type FleetDeviceIDs struct {
	Prefix    string
	FleetSize int
	Seed      uint64
}

// DeviceIDs returns n distinct identifiers such as DEV-00042.
func (f FleetDeviceIDs) DeviceIDs(rolloutID string, n int) []string {
	if n <= 0 {
		return nil
	}
	size := f.FleetSize
	if size <= 0 {
		size = defaultFleetSize
	}
	if size < n {
		size = n
	}
	prefix := f.Prefix
	if prefix == "" {
		prefix = "DEV-"
	}

	rng := rand.New(rand.NewPCG(f.Seed, hashString(rolloutID)))
	picked := rng.Perm(size)[:n]
	ids := make([]string, n)
	for i, idx := range picked {
		ids[i] = fmt.Sprintf("%s%05d", prefix, idx+1)
	}
	return ids
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
