// Package v1alpha1 contains the rollout API types served by rolloutd.
// +groupName=rollouts.apollo.io
package v1alpha1

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var (
	SchemeGroupVersion = schema.GroupVersion{Group: "rollouts.apollo.io", Version: "v1alpha1"}

	// RolloutResource identifies rollouts in status errors.
	RolloutResource = SchemeGroupVersion.WithResource("rollouts").GroupResource()
	// RolloutKind identifies rollouts in validation errors.
	RolloutKind = SchemeGroupVersion.WithKind("Rollout").GroupKind()
)
