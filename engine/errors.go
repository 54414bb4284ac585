package engine

import (
	"errors"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

const unavailableMessage = "backend scheduling service unavailable"

var errConservation = errors.New("stage counts no longer account for every device")

func newInvalid(name string, errs field.ErrorList) error {
	return apierrors.NewInvalid(v1alpha1.RolloutKind, name, errs)
}

func newUnavailable() error {
	return apierrors.NewServiceUnavailable(unavailableMessage)
}

func newNotFound(id string) error {
	return apierrors.NewNotFound(v1alpha1.RolloutResource, id)
}

// IsRejection reports whether err is a create-time rejection. No state was
// mutated when it is returned.
func IsRejection(err error) bool {
	return apierrors.IsInvalid(err) || apierrors.IsServiceUnavailable(err)
}

// IsRetryable reports whether the caller may retry the same request.
func IsRetryable(err error) bool {
	return apierrors.IsServiceUnavailable(err)
}

// RejectedFields lists the spec fields named by a validation rejection.
func RejectedFields(err error) []string {
	var status apierrors.APIStatus
	if !errors.As(err, &status) {
		return nil
	}
	details := status.Status().Details
	if details == nil {
		return nil
	}
	fields := make([]string, 0, len(details.Causes))
	for _, cause := range details.Causes {
		fields = append(fields, cause.Field)
	}
	return fields
}
