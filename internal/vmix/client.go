package vmix

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the transport surface the reconciliation core depends on.
type Client interface {
	// FetchState retrieves the raw XML state document from the vMix host.
	FetchState(ctx context.Context) ([]byte, error)
	// SendCommand executes a single command against the vMix host.
	SendCommand(ctx context.Context, cmd Command) error
}

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

const (
	defaultRequestTimeout = 5 * time.Second
	maxErrorBodyBytes     = 2048
	maxStateBodyBytes     = 8 << 20
)

type httpClient struct {
	baseURL string
	client  HTTPDoer
}

// NewHTTPClient builds a Client for the given endpoint. When doer is nil a
// default http.Client with a request timeout is used.
func NewHTTPClient(host string, port int, doer HTTPDoer) Client {
	if doer == nil {
		doer = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &httpClient{
		baseURL: fmt.Sprintf("http://%s/api", net.JoinHostPort(host, fmt.Sprintf("%d", port))),
		client:  doer,
	}
}

func (c *httpClient) FetchState(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build state request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "fetch state", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readLimited(resp.Body, maxErrorBodyBytes)
		return nil, &RejectedError{Function: "state", Status: resp.StatusCode, Body: body}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxStateBodyBytes))
	if err != nil {
		return nil, &NetworkError{Op: "read state body", Err: err}
	}
	return data, nil
}

func (c *httpClient) SendCommand(ctx context.Context, cmd Command) error {
	function, params, err := cmd.Encode()
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	query := url.Values{}
	query.Set("Function", function)
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build command request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Op: "send " + function, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readLimited(resp.Body, maxErrorBodyBytes)
		return &RejectedError{Function: function, Status: resp.StatusCode, Body: body}
	}
	return nil
}

func readLimited(r io.Reader, limit int64) string {
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
