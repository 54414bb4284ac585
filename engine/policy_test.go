package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	return path
}

func TestLoadPolicyOverridesDefaults(t *testing.T) {
	path := writePolicy(t, `
stepFraction: 0.5
phaseIntervalUnit: 1s
failureReasons:
  - "Installation failed: Disk full"
  - "Installation failed: Checksum mismatch"
`)
	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if p.StepFraction != 0.5 || p.PhaseIntervalUnit.Duration != time.Second || len(p.FailureReasons) != 2 {
		t.Fatalf("unexpected policy %+v", p)
	}
	if p.InstallFailureRate != defaultInstallFailureRate || p.TickConcurrency != defaultTickConcurrency {
		t.Fatalf("defaults not kept: %+v", p)
	}
	if got := p.phaseInterval(3); got != 3*time.Second {
		t.Fatalf("phaseInterval(3) = %v, want 3s", got)
	}
}

func TestLoadPolicyRejectsBadFiles(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "stepFractoin: 0.3\n",
		"step too large": "stepFraction: 2\n",
		"no reasons":     "failureReasons: []\n",
		"zero workers":   "tickConcurrency: 0\n",
		"no device cap":  "maxDevicesPerRollout: 0\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadPolicy(writePolicy(t, body)); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}

	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "read policy") {
		t.Fatalf("expected read error, got %v", err)
	}
	if p, err := LoadPolicy(""); err != nil || p.StepFraction != defaultStepFraction {
		t.Fatalf("empty path should yield defaults, got %+v, %v", p, err)
	}
}

func TestNewRejectsInvalidPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.InstallFailureRate = 1
	if _, err := New(Options{Policy: &p}); err == nil {
		t.Fatalf("expected invalid policy error")
	}

	p = DefaultPolicy()
	p.MaxDevicesPerRollout = 50
	e, err := New(Options{Policy: &p})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := e.Policy(); got.MaxDevicesPerRollout != 50 || len(got.FailureReasons) != len(defaultFailureReasons) {
		t.Fatalf("unexpected active policy %+v", got)
	}
}

func TestFleetDeviceIDs(t *testing.T) {
	src := FleetDeviceIDs{Seed: 42, FleetSize: 50}
	a := src.DeviceIDs("rollout-a", 20)
	if len(a) != 20 {
		t.Fatalf("got %d ids, want 20", len(a))
	}
	seen := map[string]bool{}
	for _, id := range a {
		if !strings.HasPrefix(id, "DEV-") || seen[id] {
			t.Fatalf("bad or duplicate id %q in %v", id, a)
		}
		seen[id] = true
	}
	if b := src.DeviceIDs("rollout-a", 20); strings.Join(a, ",") != strings.Join(b, ",") {
		t.Fatalf("draw is not reproducible")
	}
	if c := src.DeviceIDs("rollout-b", 20); strings.Join(a, ",") == strings.Join(c, ",") {
		t.Fatalf("different rollouts drew identical ids")
	}
	if got := src.DeviceIDs("rollout-a", 80); len(got) != 80 {
		t.Fatalf("fleet should grow to fit the request, got %d", len(got))
	}
	if got := src.DeviceIDs("rollout-a", 0); got != nil {
		t.Fatalf("expected nil for zero devices, got %v", got)
	}
}

func TestCustomDeviceIDSource(t *testing.T) {
	policy := DefaultPolicy()
	policy.TransientRejectionRate = 0
	var asked int
	src := DeviceIDSourceFunc(func(rolloutID string, n int) []string {
		asked = n
		ids := make([]string, n)
		for i := range ids {
			ids[i] = rolloutID + "-" + strings.Repeat("x", i+1)
		}
		return ids
	})
	e, err := New(Options{Policy: &policy, DeviceIDs: src, NewID: sequentialIDs()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := mustCreate(t, e, adminSpec(3))
	if asked != 3 {
		t.Fatalf("source asked for %d ids, want 3", asked)
	}
	ids, _ := e.DeviceIDs(r.ID)
	if len(ids) != 3 || ids[0] != r.ID+"-x" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestCreateRejectsShortDeviceIDSource(t *testing.T) {
	policy := DefaultPolicy()
	policy.TransientRejectionRate = 0
	src := DeviceIDSourceFunc(func(string, int) []string { return []string{"only-one"} })
	e, err := New(Options{Policy: &policy, DeviceIDs: src, NewID: sequentialIDs()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.CreateRollout(adminSpec(4)); !apierrors.IsInternalError(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if n := len(e.ListRollouts()); n != 0 {
		t.Fatalf("failed create registered %d rollouts", n)
	}
}
