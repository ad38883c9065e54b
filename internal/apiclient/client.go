// Package apiclient talks to a running vmixctld over its local HTTP API.
package apiclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vmixctl/internal/api"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a thin JSON client for the daemon API.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
}

// New builds a client for the daemon at baseURL (e.g. http://127.0.0.1:7489).
func New(baseURL, token string, doer HTTPDoer) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  doer,
	}
}

// Status fetches the daemon status document.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var out api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// View fetches the merged optimistic view.
func (c *Client) View(ctx context.Context) (*api.View, error) {
	var out api.View
	if err := c.do(ctx, http.MethodGet, "/api/view", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Inputs fetches the current input list.
func (c *Client) Inputs(ctx context.Context) ([]api.Input, error) {
	var out []api.Input
	if err := c.do(ctx, http.MethodGet, "/api/inputs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// History fetches recent command audit entries.
func (c *Client) History(ctx context.Context, limit int) ([]api.HistoryEntry, error) {
	path := "/api/history"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out []api.HistoryEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Connect switches the daemon's session target.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	return c.do(ctx, http.MethodPost, "/api/connect", api.ConnectRequest{Host: host, Port: port}, nil)
}

// Disconnect tears the daemon's session down.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/disconnect", struct{}{}, nil)
}

// SelectPreview puts an input into preview.
func (c *Client) SelectPreview(ctx context.Context, input string) (*api.CommandResponse, error) {
	var out api.CommandResponse
	if err := c.do(ctx, http.MethodPost, "/api/commands/preview", api.CommandRequest{Input: input}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuickPlay transitions preview to program.
func (c *Client) QuickPlay(ctx context.Context) (*api.CommandResponse, error) {
	var out api.CommandResponse
	if err := c.do(ctx, http.MethodPost, "/api/commands/quickplay", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleFTB flips fade-to-black.
func (c *Client) ToggleFTB(ctx context.Context) (*api.CommandResponse, error) {
	var out api.CommandResponse
	if err := c.do(ctx, http.MethodPost, "/api/commands/ftb", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetOverlay assigns an input to a layer.
func (c *Client) SetOverlay(ctx context.Context, layer int, input string) (*api.CommandResponse, error) {
	var out api.CommandResponse
	path := fmt.Sprintf("/api/commands/overlays/%d", layer)
	if err := c.do(ctx, http.MethodPost, path, api.CommandRequest{Input: input}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearOverlay clears a layer.
func (c *Client) ClearOverlay(ctx context.Context, layer int) (*api.CommandResponse, error) {
	var out api.CommandResponse
	path := fmt.Sprintf("/api/commands/overlays/%d", layer)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearAllOverlays clears every layer.
func (c *Client) ClearAllOverlays(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/commands/overlays", nil, nil)
}

// TestNotification asks the daemon to push a test notification.
func (c *Client) TestNotification(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/test", struct{}{}, nil)
}

// Profiles lists saved connection profiles.
func (c *Client) Profiles(ctx context.Context) ([]api.Profile, error) {
	var out []api.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profiles/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveProfile stores a named connection target.
func (c *Client) SaveProfile(ctx context.Context, profile api.Profile) error {
	return c.do(ctx, http.MethodPost, "/api/profiles/", profile, nil)
}

// DeleteProfile removes a saved profile.
func (c *Client) DeleteProfile(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/profiles/"+name, nil, nil)
}

// Events opens the SSE stream and invokes handle for every event until ctx
// is canceled or the stream closes.
func (c *Client) Events(ctx context.Context, handle func(json.RawMessage)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return fmt.Errorf("build events request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.errorFromResponse(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		handle(json.RawMessage(strings.TrimPrefix(line, "data: ")))
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	var apiErr api.ErrorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("daemon: %s (status %d)", apiErr.Error, resp.StatusCode)
	}
	return fmt.Errorf("daemon returned status %d", resp.StatusCode)
}
