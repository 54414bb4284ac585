package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/sets"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	// ActorHeader carries the authenticated actor name.
	ActorHeader = "X-Actor"
	// RoleHeader carries the actor's resolved role.
	RoleHeader = "X-Actor-Role"
	// TokenHeader carries the API token when one is configured.
	TokenHeader = "X-Api-Token"

	maxCreateBodyBytes = 1 << 20
	shutdownTimeout    = 5 * time.Second
)

var (
	creatorRoles  = sets.New(v1alpha1.RoleAdmin, v1alpha1.RoleOps)
	operatorRoles = sets.New(v1alpha1.RoleAdmin, v1alpha1.RoleOps)
	approverRoles = sets.New(v1alpha1.RoleAdmin)
)

// RolloutService is the engine surface the gateway exposes.
type RolloutService interface {
	CreateRollout(spec v1alpha1.RolloutSpec) (*v1alpha1.Rollout, error)
	GetRollout(id string) (*v1alpha1.Rollout, error)
	ListRollouts() []v1alpha1.Rollout
	ApproveRollout(id, actor string) (*v1alpha1.Rollout, error)
	PauseRollout(id, actor string) (*v1alpha1.Rollout, error)
	ResumeRollout(id, actor string) (*v1alpha1.Rollout, error)
	CancelRollout(id, actor string) (*v1alpha1.Rollout, error)
	FailedDevices(rolloutID string) ([]v1alpha1.FailedDevice, error)
	GetDeviceTimeline(deviceID string) []v1alpha1.DeviceEvent
}

// Gateway serves the rollout HTTP API. It implements manager.Runnable.
type Gateway struct {
	service RolloutService
	log     logr.Logger

	addr       string
	authToken  string
	authSecret string

	server *http.Server
}

// New constructs a Gateway. An empty token and secret disable token checks;
// actor and role headers are still required for mutations.
func New(service RolloutService, addr, token, tokenSecret string) *Gateway {
	return &Gateway{
		service:    service,
		log:        ctrl.Log.WithName("gateway"),
		addr:       addr,
		authToken:  strings.TrimSpace(token),
		authSecret: strings.TrimSpace(tokenSecret),
	}
}

// Handler returns the HTTP routes of the gateway.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	health := &healthz.Handler{Checks: map[string]healthz.Checker{"ping": healthz.Ping}}
	mux.Handle("/healthz", http.StripPrefix("/healthz", health))
	mux.Handle("/healthz/", http.StripPrefix("/healthz", health))
	mux.Handle("/readyz", http.StripPrefix("/readyz", health))
	mux.Handle("/readyz/", http.StripPrefix("/readyz", health))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/v1/rollouts", g.handleRollouts)
	mux.HandleFunc("/v1/rollouts/", g.handleRollout)
	mux.HandleFunc("/v1/devices/", g.handleDevice)
	return mux
}

// Start runs the HTTP server until the context is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	g.server = &http.Server{Addr: g.addr, Handler: g.Handler(), ReadHeaderTimeout: 10 * time.Second}
	g.log.Info("serving rollout API", "addr", g.addr)

	errCh := make(chan error, 1)
	go func() {
		err := g.server.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = g.server.Shutdown(shutdownCtx)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	default:
	}

	return nil
}

// NeedLeaderElection is false: every replica serves its own engine.
func (g *Gateway) NeedLeaderElection() bool {
	return false
}

func (g *Gateway) handleRollouts(w http.ResponseWriter, r *http.Request) {
	if !g.authorize(r) {
		g.respondStatus(w, apierrors.NewUnauthorized("missing or invalid API token"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		g.respondJSON(w, http.StatusOK, v1alpha1.RolloutList{Items: g.service.ListRollouts()})
	case http.MethodPost:
		g.handleCreate(w, r)
	default:
		g.respondStatus(w, apierrors.NewMethodNotSupported(v1alpha1.RolloutResource, r.Method))
	}
}

func (g *Gateway) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, role := identity(r)
	if !creatorRoles.Has(role) {
		g.respondStatus(w, forbidden(actor, role, "create"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBodyBytes)
	defer r.Body.Close()
	var spec v1alpha1.RolloutSpec
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		g.respondStatus(w, apierrors.NewBadRequest(fmt.Sprintf("invalid rollout spec: %v", err)))
		return
	}
	spec.CreatedBy = actor
	spec.CreatedByRole = role

	rollout, err := g.service.CreateRollout(spec)
	if err != nil {
		g.respondStatus(w, err)
		return
	}
	w.Header().Set("Location", "/v1/rollouts/"+rollout.ID)
	g.respondJSON(w, http.StatusCreated, rollout)
}

func (g *Gateway) handleRollout(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 || len(parts) > 4 || parts[2] == "" {
		http.NotFound(w, r)
		return
	}
	if !g.authorize(r) {
		g.respondStatus(w, apierrors.NewUnauthorized("missing or invalid API token"))
		return
	}

	id := parts[2]
	if len(parts) == 3 {
		if r.Method != http.MethodGet {
			g.respondStatus(w, apierrors.NewMethodNotSupported(v1alpha1.RolloutResource, r.Method))
			return
		}
		g.respond(w)(g.service.GetRollout(id))
		return
	}

	action := parts[3]
	if action == "failed-devices" {
		if r.Method != http.MethodGet {
			g.respondStatus(w, apierrors.NewMethodNotSupported(v1alpha1.RolloutResource, r.Method))
			return
		}
		failed, err := g.service.FailedDevices(id)
		if err != nil {
			g.respondStatus(w, err)
			return
		}
		g.respondJSON(w, http.StatusOK, v1alpha1.FailedDeviceList{RolloutID: id, Items: failed})
		return
	}

	var (
		command func(id, actor string) (*v1alpha1.Rollout, error)
		allowed sets.Set[v1alpha1.Role]
	)
	switch action {
	case "approve":
		command, allowed = g.service.ApproveRollout, approverRoles
	case "pause":
		command, allowed = g.service.PauseRollout, operatorRoles
	case "resume":
		command, allowed = g.service.ResumeRollout, operatorRoles
	case "cancel":
		command, allowed = g.service.CancelRollout, operatorRoles
	default:
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		g.respondStatus(w, apierrors.NewMethodNotSupported(v1alpha1.RolloutResource, r.Method))
		return
	}

	actor, role := identity(r)
	if !allowed.Has(role) {
		g.respondStatus(w, forbidden(actor, role, action))
		return
	}
	g.log.V(1).Info("rollout command", "rollout", id, "action", action, "actor", actor, "role", role)
	g.respond(w)(command(id, actor))
}

func (g *Gateway) handleDevice(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[3] != "timeline" || parts[2] == "" {
		http.NotFound(w, r)
		return
	}
	if !g.authorize(r) {
		g.respondStatus(w, apierrors.NewUnauthorized("missing or invalid API token"))
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	deviceID := parts[2]
	events := g.service.GetDeviceTimeline(deviceID)
	if events == nil {
		events = []v1alpha1.DeviceEvent{}
	}
	g.respondJSON(w, http.StatusOK, v1alpha1.DeviceTimeline{DeviceID: deviceID, Events: events})
}

// authorize accepts a per-actor HMAC token when a secret is configured and
// falls back to the shared token.
func (g *Gateway) authorize(r *http.Request) bool {
	header := strings.TrimSpace(r.Header.Get(TokenHeader))

	if g.authSecret != "" {
		if actor, _ := identity(r); actor != "" {
			if hmac.Equal([]byte(header), []byte(ComputeActorToken(g.authSecret, actor))) {
				return true
			}
		}
	}

	if g.authToken == "" {
		return g.authSecret == ""
	}
	return hmac.Equal([]byte(header), []byte(g.authToken))
}

// ComputeActorToken derives the API token of one actor from the shared secret.
func ComputeActorToken(secret, actor string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(actor))
	return hex.EncodeToString(mac.Sum(nil))
}

func identity(r *http.Request) (string, v1alpha1.Role) {
	actor := strings.TrimSpace(r.Header.Get(ActorHeader))
	role := v1alpha1.Role(strings.ToUpper(strings.TrimSpace(r.Header.Get(RoleHeader))))
	return actor, role
}

func forbidden(actor string, role v1alpha1.Role, action string) error {
	if actor == "" {
		actor = "anonymous"
	}
	return apierrors.NewForbidden(v1alpha1.RolloutResource, "", fmt.Errorf("%s (role %q) may not %s rollouts", actor, role, action))
}

func (g *Gateway) respond(w http.ResponseWriter) func(*v1alpha1.Rollout, error) {
	return func(rollout *v1alpha1.Rollout, err error) {
		if err != nil {
			g.respondStatus(w, err)
			return
		}
		g.respondJSON(w, http.StatusOK, rollout)
	}
}

func (g *Gateway) respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.log.Error(err, "encode response")
	}
}

// respondStatus writes err as a metav1.Status. Errors that carry no status
// are reported as internal errors.
func (g *Gateway) respondStatus(w http.ResponseWriter, err error) {
	var apiStatus apierrors.APIStatus
	if !errors.As(err, &apiStatus) {
		g.log.Error(err, "unexpected error")
		apiStatus = apierrors.NewInternalError(err)
	}
	status := apiStatus.Status()
	status.Kind = "Status"
	status.APIVersion = "v1"
	if status.Status == "" {
		status.Status = metav1.StatusFailure
	}
	code := int(status.Code)
	if code == 0 {
		code = http.StatusInternalServerError
	}
	g.log.V(1).Info("http error", "code", code, "reason", status.Reason, "message", status.Message)
	g.respondJSON(w, code, status)
}
