package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/apollo/fleetrollout/engine"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	testingclock "k8s.io/utils/clock/testing"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	policy := engine.DefaultPolicy()
	policy.TransientRejectionRate = 0
	e, err := engine.New(engine.Options{
		Clock:  testingclock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
		Policy: &policy,
		Seed:   1,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e
}

type caller struct {
	t       *testing.T
	handler http.Handler
	actor   string
	role    v1alpha1.Role
	token   string
}

func (c caller) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if c.actor != "" {
		req.Header.Set(ActorHeader, c.actor)
	}
	if c.role != "" {
		req.Header.Set(RoleHeader, string(c.role))
	}
	if c.token != "" {
		req.Header.Set(TokenHeader, c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func rolloutSpec() v1alpha1.RolloutSpec {
	return v1alpha1.RolloutSpec{
		Name:         "fw-2.1",
		FromVersion:  "2.0.0",
		ToVersion:    "2.1.0",
		TotalDevices: 4,
	}
}

func TestCreateApproveFlow(t *testing.T) {
	g := New(testEngine(t), ":0", "", "")
	h := g.Handler()
	ops := caller{t: t, handler: h, actor: "olivia", role: v1alpha1.RoleOps}
	admin := caller{t: t, handler: h, actor: "alice", role: v1alpha1.RoleAdmin}

	rec := ops.do(http.MethodPost, "/v1/rollouts", rolloutSpec())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[v1alpha1.Rollout](t, rec)
	if created.Status != v1alpha1.RolloutPendingApproval || created.CreatedBy != "olivia" || created.CreatedByRole != v1alpha1.RoleOps {
		t.Fatalf("unexpected created rollout %+v", created)
	}
	if loc := rec.Header().Get("Location"); loc != "/v1/rollouts/"+created.ID {
		t.Fatalf("location = %q", loc)
	}

	if rec := ops.do(http.MethodPost, "/v1/rollouts/"+created.ID+"/approve", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("OPS approve status = %d, want 403", rec.Code)
	}

	rec = admin.do(http.MethodPost, "/v1/rollouts/"+created.ID+"/approve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[v1alpha1.Rollout](t, rec); got.Status != v1alpha1.RolloutScheduled || got.ApprovedAt == nil {
		t.Fatalf("unexpected approved rollout %+v", got)
	}

	rec = ops.do(http.MethodPost, "/v1/rollouts/"+created.ID+"/pause", nil)
	if got := decode[v1alpha1.Rollout](t, rec); rec.Code != http.StatusOK || !got.IsPaused {
		t.Fatalf("pause failed: %d %s", rec.Code, rec.Body.String())
	}

	list := decode[v1alpha1.RolloutList](t, admin.do(http.MethodGet, "/v1/rollouts", nil))
	if len(list.Items) != 1 || list.Items[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestCreateRequiresCreatorRole(t *testing.T) {
	h := New(testEngine(t), ":0", "", "").Handler()
	analyst := caller{t: t, handler: h, actor: "ann", role: v1alpha1.RoleAnalyst}

	rec := analyst.do(http.MethodPost, "/v1/rollouts", rolloutSpec())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("analyst create status = %d, want 403", rec.Code)
	}
	status := decode[metav1.Status](t, rec)
	if status.Reason != metav1.StatusReasonForbidden {
		t.Fatalf("reason = %q, want Forbidden", status.Reason)
	}

	if rec := analyst.do(http.MethodGet, "/v1/rollouts", nil); rec.Code != http.StatusOK {
		t.Fatalf("analyst list status = %d, want 200", rec.Code)
	}
}

func TestCreateRejectionsAreStatuses(t *testing.T) {
	h := New(testEngine(t), ":0", "", "").Handler()
	admin := caller{t: t, handler: h, actor: "alice", role: v1alpha1.RoleAdmin}

	spec := rolloutSpec()
	spec.FromVersion, spec.ToVersion = "2.0.0", "1.5.0"
	rec := admin.do(http.MethodPost, "/v1/rollouts", spec)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("downgrade status = %d, want 422", rec.Code)
	}
	status := decode[metav1.Status](t, rec)
	if status.Reason != metav1.StatusReasonInvalid || status.Details == nil || len(status.Details.Causes) == 0 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Details.Causes[0].Field != "spec.toVersion" {
		t.Fatalf("cause field = %q, want spec.toVersion", status.Details.Causes[0].Field)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/rollouts", bytes.NewBufferString(`{"totalDevices": 3, "colour": "red"}`))
	req.Header.Set(ActorHeader, "alice")
	req.Header.Set(RoleHeader, "ADMIN")
	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d, want 400", bad.Code)
	}
}

func TestUnknownRolloutReturnsNotFound(t *testing.T) {
	h := New(testEngine(t), ":0", "", "").Handler()
	admin := caller{t: t, handler: h, actor: "alice", role: v1alpha1.RoleAdmin}

	for _, path := range []string{"/v1/rollouts/nope", "/v1/rollouts/nope/failed-devices"} {
		if rec := admin.do(http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s status = %d, want 404", path, rec.Code)
		}
	}
	if rec := admin.do(http.MethodPost, "/v1/rollouts/nope/cancel", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("cancel status = %d, want 404", rec.Code)
	}
	if rec := admin.do(http.MethodPost, "/v1/rollouts/nope/explode", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown action status = %d, want 404", rec.Code)
	}
}

func TestTokenAuthorization(t *testing.T) {
	h := New(testEngine(t), ":0", "shared", "hmac-secret").Handler()

	anon := caller{t: t, handler: h, actor: "alice", role: v1alpha1.RoleAdmin}
	if rec := anon.do(http.MethodGet, "/v1/rollouts", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", rec.Code)
	}

	shared := anon
	shared.token = "shared"
	if rec := shared.do(http.MethodGet, "/v1/rollouts", nil); rec.Code != http.StatusOK {
		t.Fatalf("shared token status = %d, want 200", rec.Code)
	}

	perActor := anon
	perActor.token = ComputeActorToken("hmac-secret", "alice")
	if rec := perActor.do(http.MethodGet, "/v1/rollouts", nil); rec.Code != http.StatusOK {
		t.Fatalf("actor token status = %d, want 200", rec.Code)
	}

	stolen := perActor
	stolen.actor = "mallory"
	if rec := stolen.do(http.MethodGet, "/v1/rollouts", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("token for another actor status = %d, want 401", rec.Code)
	}

	if rec := anon.do(http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
}

func TestDeviceTimelineAndFailedDevices(t *testing.T) {
	e := testEngine(t)
	h := New(e, ":0", "", "").Handler()
	admin := caller{t: t, handler: h, actor: "alice", role: v1alpha1.RoleAdmin}

	spec := rolloutSpec()
	spec.TotalDevices = 0
	spec.DeviceIDs = []string{"kiosk-1"}
	created := decode[v1alpha1.Rollout](t, admin.do(http.MethodPost, "/v1/rollouts", spec))
	for i := 0; i < 4; i++ {
		if err := e.AdvanceTick(); err != nil {
			t.Fatalf("AdvanceTick: %v", err)
		}
	}

	timeline := decode[v1alpha1.DeviceTimeline](t, admin.do(http.MethodGet, "/v1/devices/kiosk-1/timeline", nil))
	if timeline.DeviceID != "kiosk-1" || len(timeline.Events) != 4 {
		t.Fatalf("unexpected timeline %+v", timeline)
	}
	if timeline.Events[0].RolloutID != created.ID {
		t.Fatalf("event rollout = %s, want %s", timeline.Events[0].RolloutID, created.ID)
	}

	empty := decode[v1alpha1.DeviceTimeline](t, admin.do(http.MethodGet, "/v1/devices/kiosk-9/timeline", nil))
	if empty.Events == nil || len(empty.Events) != 0 {
		t.Fatalf("expected empty event list, got %+v", empty)
	}

	failed := decode[v1alpha1.FailedDeviceList](t, admin.do(http.MethodGet, "/v1/rollouts/"+created.ID+"/failed-devices", nil))
	if failed.RolloutID != created.ID || len(failed.Items) != 0 {
		t.Fatalf("unexpected failed devices %+v", failed)
	}
}
