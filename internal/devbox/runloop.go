package devbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrMissingAPIKey is returned by CreateDevbox when no Runloop API key
// is configured. Callers surface this as a failed run, not a crash.
var ErrMissingAPIKey = errors.New("devbox: runloop api key is not configured")

// RunloopClient provisions devboxes through the Runloop HTTP API.
type RunloopClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewRunloopClient creates a Runloop devbox provider. An empty apiKey is
// allowed; provisioning will fail with ErrMissingAPIKey.
func NewRunloopClient(apiKey, baseURL string) *RunloopClient {
	return &RunloopClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type runloopDevbox struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type runloopExecRequest struct {
	Command string `json:"command"`
}

type runloopExecResponse struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitStatus int    `json:"exit_status"`
}

// CreateDevbox provisions a fresh devbox and waits for the API to
// acknowledge it.
func (c *RunloopClient) CreateDevbox(ctx context.Context) (Devbox, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var created runloopDevbox
	if err := c.do(ctx, http.MethodPost, "/v1/devboxes", struct{}{}, &created); err != nil {
		return nil, fmt.Errorf("devbox: create: %w", err)
	}
	if created.ID == "" {
		return nil, errors.New("devbox: create: response missing id")
	}

	return &remoteDevbox{client: c, id: created.ID}, nil
}

func (c *RunloopClient) do(ctx context.Context, method, path string, payload, out any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// remoteDevbox is a handle to one Runloop devbox.
type remoteDevbox struct {
	client *RunloopClient
	id     string
}

func (d *remoteDevbox) ID() string {
	return d.id
}

// Exec runs a command synchronously on the devbox.
func (d *remoteDevbox) Exec(ctx context.Context, command string) (ExecResult, error) {
	var result runloopExecResponse
	err := d.client.do(ctx, http.MethodPost, "/v1/devboxes/"+d.id+"/execute_sync", runloopExecRequest{Command: command}, &result)
	if err != nil {
		return ExecResult{}, fmt.Errorf("devbox: exec: %w", err)
	}
	return ExecResult{Stdout: result.Stdout, Stderr: result.Stderr, ExitCode: result.ExitStatus}, nil
}

// Shutdown tears the devbox down.
func (d *remoteDevbox) Shutdown(ctx context.Context) error {
	if err := d.client.do(ctx, http.MethodPost, "/v1/devboxes/"+d.id+"/shutdown", struct{}{}, nil); err != nil {
		return fmt.Errorf("devbox: shutdown: %w", err)
	}
	return nil
}
