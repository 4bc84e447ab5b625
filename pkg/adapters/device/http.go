package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/pacer/pkg/domain"
)

// MoveRequest is the JSON body POSTed to the device service for one step.
type MoveRequest struct {
	RunID      string  `json:"run_id"`
	Pattern    string  `json:"pattern"`
	Step       int     `json:"step"`
	DX         float64 `json:"dx"`
	DY         float64 `json:"dy"`
	DurationMs float64 `json:"duration_ms"`
}

// HTTPActuator forwards commands to a device service over HTTP.
type HTTPActuator struct {
	serviceURL string
	client     *http.Client
}

// HTTPOption configures an HTTPActuator.
type HTTPOption func(*HTTPActuator)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(a *HTTPActuator) {
		a.client = client
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(a *HTTPActuator) {
		a.client = &http.Client{Timeout: timeout}
	}
}

// NewHTTPActuator creates an actuator posting to serviceURL + "/move".
func NewHTTPActuator(serviceURL string, opts ...HTTPOption) *HTTPActuator {
	a := &HTTPActuator{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client:     &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply sends cmd. The request is abandoned when ctx is cancelled.
func (a *HTTPActuator) Apply(ctx context.Context, cmd domain.Command) error {
	body, err := json.Marshal(MoveRequest{
		RunID:      cmd.RunID,
		Pattern:    cmd.Pattern,
		Step:       cmd.Index,
		DX:         cmd.DX,
		DY:         cmd.DY,
		DurationMs: float64(cmd.Duration) / float64(time.Millisecond),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal move: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.serviceURL+"/move", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send move: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("device service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
