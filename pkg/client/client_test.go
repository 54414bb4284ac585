package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/apollo/fleetrollout/engine"
	"github.com/apollo/fleetrollout/gateway"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

func newServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	policy := engine.DefaultPolicy()
	policy.TransientRejectionRate = 0
	e, err := engine.New(engine.Options{Policy: &policy, Seed: 3})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	srv := httptest.NewServer(gateway.New(e, "", "tok", "").Handler())
	t.Cleanup(srv.Close)
	return srv, e
}

func TestClientRoundTrip(t *testing.T) {
	srv, e := newServer(t)
	ctx := context.Background()

	c := NewRolloutClient(srv.URL+"/", nil)
	c.Actor, c.Role, c.Token = "alice", v1alpha1.RoleAdmin, "tok"

	created, err := c.CreateRollout(ctx, v1alpha1.RolloutSpec{
		Name:      "fw",
		DeviceIDs: []string{"kiosk-1", "kiosk-2"},
	})
	if err != nil {
		t.Fatalf("CreateRollout: %v", err)
	}
	if created.TotalDevices != 2 || created.CreatedBy != "alice" {
		t.Fatalf("unexpected rollout %+v", created)
	}

	for i := 0; i < 8; i++ {
		if err := e.AdvanceTick(); err != nil {
			t.Fatalf("AdvanceTick: %v", err)
		}
	}

	got, err := c.GetRollout(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRollout: %v", err)
	}
	if got.Status != v1alpha1.RolloutCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}

	list, err := c.ListRollouts(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListRollouts = %v, %v", list, err)
	}

	events, err := c.DeviceTimeline(ctx, "kiosk-2")
	if err != nil {
		t.Fatalf("DeviceTimeline: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("timeline has %d events, want 4", len(events))
	}

	if _, err := c.FailedDevices(ctx, created.ID); err != nil {
		t.Fatalf("FailedDevices: %v", err)
	}

	// Completed rollouts ignore further commands.
	after, err := c.CancelRollout(ctx, created.ID)
	if err != nil {
		t.Fatalf("CancelRollout: %v", err)
	}
	if after.Status != v1alpha1.RolloutCompleted {
		t.Fatalf("cancel changed a completed rollout: %s", after.Status)
	}
}

func TestClientErrorsAreStatusErrors(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()

	c := NewRolloutClient(srv.URL, &http.Client{})
	c.Actor, c.Role, c.Token = "olivia", v1alpha1.RoleOps, "tok"

	if _, err := c.GetRollout(ctx, "missing"); !apierrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	created, err := c.CreateRollout(ctx, v1alpha1.RolloutSpec{TotalDevices: 3})
	if err != nil {
		t.Fatalf("CreateRollout: %v", err)
	}
	if _, err := c.ApproveRollout(ctx, created.ID); !apierrors.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if _, err := c.CreateRollout(ctx, v1alpha1.RolloutSpec{TotalDevices: 3, FromVersion: "3.0", ToVersion: "2.9"}); !apierrors.IsInvalid(err) {
		t.Fatalf("expected invalid, got %v", err)
	}

	c.Token = "wrong"
	if _, err := c.ListRollouts(ctx); !apierrors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
