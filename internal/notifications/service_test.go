package notifications

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vmixctl/internal/config"
)

func TestNoopWhenTopicUnset(t *testing.T) {
	cfg := config.Default()
	svc := NewService(&cfg)
	if _, ok := svc.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", svc)
	}
	if err := svc.NotifyConnectivityLost(context.Background(), "10.0.0.5", errors.New("timeout")); err != nil {
		t.Fatalf("noop should never fail: %v", err)
	}
}

func TestNtfySendSetsHeaders(t *testing.T) {
	var gotTitle, gotTags, gotPriority, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		gotPriority = r.Header.Get("Priority")
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := NewService(&cfg)

	err := svc.NotifyConnectivityLost(context.Background(), "10.0.0.5", errors.New("connection refused"))
	if err != nil {
		t.Fatalf("NotifyConnectivityLost: %v", err)
	}
	if !strings.Contains(gotTitle, "Connection Lost") {
		t.Fatalf("title = %q", gotTitle)
	}
	if !strings.Contains(gotTags, "connectivity") {
		t.Fatalf("tags = %q", gotTags)
	}
	if gotPriority != "high" {
		t.Fatalf("priority = %q, want high", gotPriority)
	}
	if !strings.Contains(gotBody, "10.0.0.5") {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestNtfyErrorStatusSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
