// Package client talks to the rollout daemon HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Identity headers understood by the daemon.
const (
	actorHeader = "X-Actor"
	roleHeader  = "X-Actor-Role"
	tokenHeader = "X-Api-Token"
)

// RolloutClient is a thin HTTP client for rolloutd.
type RolloutClient struct {
	BaseURL    string
	HTTPClient *http.Client

	Actor string
	Role  v1alpha1.Role
	Token string
}

// NewRolloutClient returns a client initialized with the base URL.
func NewRolloutClient(baseURL string, httpClient *http.Client) *RolloutClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &RolloutClient{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: httpClient}
}

// CreateRollout submits a new rollout. Creator identity comes from the
// client's Actor and Role.
func (c *RolloutClient) CreateRollout(ctx context.Context, spec v1alpha1.RolloutSpec) (*v1alpha1.Rollout, error) {
	var rollout v1alpha1.Rollout
	if err := c.do(ctx, http.MethodPost, "/v1/rollouts", spec, &rollout); err != nil {
		return nil, err
	}
	return &rollout, nil
}

// ListRollouts lists every rollout in creation order.
func (c *RolloutClient) ListRollouts(ctx context.Context) ([]v1alpha1.Rollout, error) {
	var list v1alpha1.RolloutList
	if err := c.do(ctx, http.MethodGet, "/v1/rollouts", nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetRollout fetches a rollout by id.
func (c *RolloutClient) GetRollout(ctx context.Context, id string) (*v1alpha1.Rollout, error) {
	var rollout v1alpha1.Rollout
	if err := c.do(ctx, http.MethodGet, "/v1/rollouts/"+url.PathEscape(id), nil, &rollout); err != nil {
		return nil, err
	}
	return &rollout, nil
}

// ApproveRollout approves a pending rollout.
func (c *RolloutClient) ApproveRollout(ctx context.Context, id string) (*v1alpha1.Rollout, error) {
	return c.command(ctx, id, "approve")
}

// PauseRollout pauses a rollout.
func (c *RolloutClient) PauseRollout(ctx context.Context, id string) (*v1alpha1.Rollout, error) {
	return c.command(ctx, id, "pause")
}

// ResumeRollout resumes a paused rollout.
func (c *RolloutClient) ResumeRollout(ctx context.Context, id string) (*v1alpha1.Rollout, error) {
	return c.command(ctx, id, "resume")
}

// CancelRollout cancels a rollout.
func (c *RolloutClient) CancelRollout(ctx context.Context, id string) (*v1alpha1.Rollout, error) {
	return c.command(ctx, id, "cancel")
}

// FailedDevices lists the failed installs of a rollout.
func (c *RolloutClient) FailedDevices(ctx context.Context, id string) ([]v1alpha1.FailedDevice, error) {
	var list v1alpha1.FailedDeviceList
	if err := c.do(ctx, http.MethodGet, "/v1/rollouts/"+url.PathEscape(id)+"/failed-devices", nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// DeviceTimeline returns the merged event history of a device.
func (c *RolloutClient) DeviceTimeline(ctx context.Context, deviceID string) ([]v1alpha1.DeviceEvent, error) {
	var timeline v1alpha1.DeviceTimeline
	if err := c.do(ctx, http.MethodGet, "/v1/devices/"+url.PathEscape(deviceID)+"/timeline", nil, &timeline); err != nil {
		return nil, err
	}
	return timeline.Events, nil
}

func (c *RolloutClient) command(ctx context.Context, id, action string) (*v1alpha1.Rollout, error) {
	var rollout v1alpha1.Rollout
	if err := c.do(ctx, http.MethodPost, "/v1/rollouts/"+url.PathEscape(id)+"/"+action, nil, &rollout); err != nil {
		return nil, err
	}
	return &rollout, nil
}

func (c *RolloutClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return err
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Actor != "" {
		req.Header.Set(actorHeader, c.Actor)
	}
	if c.Role != "" {
		req.Header.Set(roleHeader, string(c.Role))
	}
	if c.Token != "" {
		req.Header.Set(tokenHeader, c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError turns an error response into a StatusError so callers can use
// the apierrors predicates.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	var status metav1.Status
	if err := json.Unmarshal(data, &status); err == nil && status.Kind == "Status" {
		return &apierrors.StatusError{ErrStatus: status}
	}
	return apierrors.NewGenericServerResponse(resp.StatusCode, resp.Request.Method, v1alpha1.RolloutResource, "",
		fmt.Sprintf("rolloutd error: %s", strings.TrimSpace(string(data))), 0, false)
}
