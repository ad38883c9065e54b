package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vmixctl/internal/api"
)

func TestSelectPreviewSendsTokenAndBody(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq api.CommandRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(api.CommandResponse{ID: "cmd-1", Status: "pending"})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", nil)
	resp, err := c.SelectPreview(context.Background(), "in-3")
	if err != nil {
		t.Fatalf("SelectPreview: %v", err)
	}
	if resp.ID != "cmd-1" || resp.Status != "pending" {
		t.Fatalf("resp = %+v", resp)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotPath != "/api/commands/preview" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotReq.Input != "in-3" {
		t.Fatalf("input = %q", gotReq.Input)
	}
}

func TestErrorResponseSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "input no longer exists: in-9"})
	}))
	defer srv.Close()

	c := New(srv.URL, "", nil)
	_, err := c.SetOverlay(context.Background(), 2, "in-9")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "daemon: input no longer exists: in-9 (status 409)" {
		t.Fatalf("error = %q", got)
	}
}

func TestEventsParsesSSEStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"type\":\"snapshot\"}\n\n"))
		w.Write([]byte(": heartbeat\n\n"))
		w.Write([]byte("data: {\"type\":\"command_resolved\"}\n\n"))
	}))
	defer srv.Close()

	var events []string
	c := New(srv.URL, "", nil)
	err := c.Events(context.Background(), func(raw json.RawMessage) {
		var e struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			t.Errorf("unmarshal event: %v", err)
		}
		events = append(events, e.Type)
	})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 || events[0] != "snapshot" || events[1] != "command_resolved" {
		t.Fatalf("events = %v", events)
	}
}

func TestHistoryLimitQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]api.HistoryEntry{})
	}))
	defer srv.Close()

	c := New(srv.URL, "", nil)
	if _, err := c.History(context.Background(), 25); err != nil {
		t.Fatalf("History: %v", err)
	}
	if gotQuery != "limit=25" {
		t.Fatalf("query = %q", gotQuery)
	}
}
