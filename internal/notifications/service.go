// Package notifications pushes operator-facing alerts through ntfy when a
// topic is configured. With no topic the service is a noop, so callers never
// branch on configuration.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vmixctl/internal/config"
)

const userAgent = "vmixctl/0.1.0"

// Service is the notification surface used by the daemon.
type Service interface {
	NotifyConnectivityLost(ctx context.Context, host string, err error) error
	NotifyConnectivityRestored(ctx context.Context, host string) error
	NotifyCommandFailed(ctx context.Context, command, detail string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyConnectivityLost(ctx context.Context, host string, err error) error {
	data := payload{
		title:    "vmixctl - Connection Lost",
		message:  fmt.Sprintf("Lost contact with vMix at %s: %v", host, err),
		tags:     []string{"vmixctl", "connectivity", "lost"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConnectivityRestored(ctx context.Context, host string) error {
	data := payload{
		title:   "vmixctl - Connection Restored",
		message: fmt.Sprintf("vMix at %s is reachable again", host),
		tags:    []string{"vmixctl", "connectivity", "restored"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCommandFailed(ctx context.Context, command, detail string) error {
	data := payload{
		title:   "vmixctl - Command Failed",
		message: fmt.Sprintf("%s: %s", command, detail),
		tags:    []string{"vmixctl", "command", "failed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:   "vmixctl - Test",
		message: "Notifications are working",
		tags:    []string{"vmixctl", "test"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Title", data.title)
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyConnectivityLost(context.Context, string, error) error { return nil }

func (noopService) NotifyConnectivityRestored(context.Context, string) error { return nil }

func (noopService) NotifyCommandFailed(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
