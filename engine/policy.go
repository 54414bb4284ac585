package engine

import (
	"fmt"
	"os"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"sigs.k8s.io/yaml"
)

const (
	defaultStepFraction           = 0.25
	defaultInstallFailureRate     = 0.10
	defaultTransientRejectionRate = 0.05
	defaultTickConcurrency        = 8
	defaultMaxDevicesPerRollout   = 100000
)

var defaultFailureReasons = []string{
	"Network timeout during download",
	"Insufficient storage space",
	"App integrity verification failed",
	"Device offline during install",
	"OS compatibility mismatch",
}

// Policy holds the simulation parameters of the stage pipeline. They stand in
// for real delivery telemetry and are loaded from configuration.
type Policy struct {
	// StepFraction is the share of the base pool moved per tick.
	StepFraction float64 `json:"stepFraction"`
	// InstallFailureRate is the share of each installing batch that fails.
	InstallFailureRate float64 `json:"installFailureRate"`
	// TransientRejectionRate is the probability that a create request is
	// rejected as if the backend were unavailable.
	TransientRejectionRate float64 `json:"transientRejectionRate"`
	// PhaseIntervalUnit is the length of one phasedIntervalMinutes unit.
	PhaseIntervalUnit metav1.Duration `json:"phaseIntervalUnit"`
	// FailureReasons are assigned to failed installs.
	FailureReasons []string `json:"failureReasons,omitempty"`
	// TickConcurrency bounds how many rollouts advance in parallel.
	TickConcurrency int `json:"tickConcurrency"`
	// MaxDevicesPerRollout caps the fleet size a single rollout may target.
	MaxDevicesPerRollout int `json:"maxDevicesPerRollout"`
	// ShiftPhaseOnResume pushes nextPhaseAt forward by the paused duration on
	// resume instead of releasing the overdue phase immediately.
	ShiftPhaseOnResume bool `json:"shiftPhaseOnResume,omitempty"`
}

// DefaultPolicy returns the reference simulation parameters.
func DefaultPolicy() Policy {
	return Policy{
		StepFraction:           defaultStepFraction,
		InstallFailureRate:     defaultInstallFailureRate,
		TransientRejectionRate: defaultTransientRejectionRate,
		PhaseIntervalUnit:      metav1.Duration{Duration: time.Minute},
		FailureReasons:         append([]string(nil), defaultFailureReasons...),
		TickConcurrency:        defaultTickConcurrency,
		MaxDevicesPerRollout:   defaultMaxDevicesPerRollout,
	}
}

// Validate checks that every parameter is usable.
func (p Policy) Validate() error {
	var errs field.ErrorList
	root := field.NewPath("policy")
	if p.StepFraction <= 0 || p.StepFraction > 1 {
		errs = append(errs, field.Invalid(root.Child("stepFraction"), p.StepFraction, "must be in (0, 1]"))
	}
	if p.InstallFailureRate < 0 || p.InstallFailureRate >= 1 {
		errs = append(errs, field.Invalid(root.Child("installFailureRate"), p.InstallFailureRate, "must be in [0, 1)"))
	}
	if p.TransientRejectionRate < 0 || p.TransientRejectionRate >= 1 {
		errs = append(errs, field.Invalid(root.Child("transientRejectionRate"), p.TransientRejectionRate, "must be in [0, 1)"))
	}
	if p.PhaseIntervalUnit.Duration <= 0 {
		errs = append(errs, field.Invalid(root.Child("phaseIntervalUnit"), p.PhaseIntervalUnit.Duration.String(), "must be positive"))
	}
	if p.TickConcurrency < 1 {
		errs = append(errs, field.Invalid(root.Child("tickConcurrency"), p.TickConcurrency, "must be at least 1"))
	}
	if p.MaxDevicesPerRollout < 1 {
		errs = append(errs, field.Invalid(root.Child("maxDevicesPerRollout"), p.MaxDevicesPerRollout, "must be at least 1"))
	}
	if p.InstallFailureRate > 0 && len(p.FailureReasons) == 0 {
		errs = append(errs, field.Required(root.Child("failureReasons"), "at least one reason is needed when installs can fail"))
	}
	return errs.ToAggregate()
}

// LoadPolicy reads a YAML policy file. Fields absent from the file keep
// their default values.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return Policy{}, fmt.Errorf("decode policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return p, nil
}

// phaseInterval converts a phased interval into wall time.
func (p Policy) phaseInterval(minutes int) time.Duration {
	return time.Duration(minutes) * p.PhaseIntervalUnit.Duration
}
