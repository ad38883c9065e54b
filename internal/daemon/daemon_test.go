package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vmixctl/internal/api"
	"vmixctl/internal/config"
	"vmixctl/internal/controller"
	"vmixctl/internal/history"
	"vmixctl/internal/metrics"
	"vmixctl/internal/vmix"
)

type fakeVMix struct {
	mu       sync.Mutex
	document string
	sent     []vmix.Command
}

func (f *fakeVMix) FetchState(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []byte(f.document), nil
}

func (f *fakeVMix) SendCommand(ctx context.Context, cmd vmix.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	return nil
}

const testDocument = `<vmix>
  <inputs>
    <input key="in-1" number="1" title="Cam1"/>
    <input key="in-2" number="2" title="Cam2"/>
  </inputs>
  <preview>1</preview>
  <active>2</active>
</vmix>`

func startTestDaemon(t *testing.T, token string) (*Daemon, string) {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.API.Bind = "127.0.0.1:0"
	cfg.API.Token = token
	cfg.Polling.IntervalMS = 100
	cfg.Polling.BackoffMaxMS = 400

	store, err := history.Open(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fake := &fakeVMix{document: testDocument}
	m := metrics.New()
	ctl := controller.New(&cfg, nil, controller.Options{
		ClientFactory: func(host string, port int) vmix.Client { return fake },
		Metrics:       m,
		History:       store,
	})

	d, err := New(&cfg, ctl, store, m, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	// Wait for the first snapshot so view endpoints have data.
	deadline := time.Now().Add(2 * time.Second)
	for d.ctl.CurrentView().Snapshot == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	return d, "http://" + d.api.addr()
}

func getJSON(t *testing.T, url, token string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStatusAndViewEndpoints(t *testing.T) {
	_, base := startTestDaemon(t, "")

	var status Status
	if code := getJSON(t, base+"/api/status", "", &status); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if !status.Running || !status.Connection.Connected {
		t.Fatalf("status = %+v", status)
	}

	var view api.View
	if code := getJSON(t, base+"/api/view", "", &view); code != http.StatusOK {
		t.Fatalf("view code = %d", code)
	}
	if !view.HasSnapshot || view.PreviewID != "in-1" || view.ActiveID != "in-2" {
		t.Fatalf("view = %+v", view)
	}
	if len(view.Inputs) != 2 {
		t.Fatalf("inputs = %d, want 2", len(view.Inputs))
	}
}

func TestPreviewCommandAcceptedAndRecorded(t *testing.T) {
	d, base := startTestDaemon(t, "")

	var resp api.CommandResponse
	code := postJSON(t, base+"/api/commands/preview", api.CommandRequest{Input: "in-2"}, &resp)
	if code != http.StatusAccepted {
		t.Fatalf("code = %d, want 202", code)
	}
	if resp.ID == "" || resp.Status != "pending" {
		t.Fatalf("resp = %+v", resp)
	}

	// Optimistic view flips immediately.
	var view api.View
	getJSON(t, base+"/api/view", "", &view)
	if view.PreviewID != "in-2" {
		t.Fatalf("optimistic preview = %q", view.PreviewID)
	}

	// History records the submission.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := d.store.List(context.Background(), 10)
		if err != nil {
			t.Fatalf("history list: %v", err)
		}
		if len(entries) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("command never recorded in history")
}

func TestStaleOverlayTargetReturnsConflict(t *testing.T) {
	_, base := startTestDaemon(t, "")

	code := postJSON(t, base+"/api/commands/overlays/1", api.CommandRequest{Input: "in-99"}, nil)
	if code != http.StatusConflict {
		t.Fatalf("code = %d, want 409", code)
	}
}

func TestBadLayerRejected(t *testing.T) {
	_, base := startTestDaemon(t, "")

	code := postJSON(t, base+"/api/commands/overlays/9", api.CommandRequest{Input: "in-1"}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", code)
	}
}

func TestAuthTokenEnforced(t *testing.T) {
	_, base := startTestDaemon(t, "secret")

	if code := getJSON(t, base+"/api/status", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated code = %d, want 401", code)
	}
	if code := getJSON(t, base+"/api/status", "wrong", nil); code != http.StatusUnauthorized {
		t.Fatalf("bad token code = %d, want 401", code)
	}
	if code := getJSON(t, base+"/api/status", "secret", nil); code != http.StatusOK {
		t.Fatalf("authed code = %d, want 200", code)
	}
}

func TestProfileEndpoints(t *testing.T) {
	_, base := startTestDaemon(t, "")

	code := postJSON(t, base+"/api/profiles/", api.Profile{Name: "studio", Host: "10.0.0.5"}, nil)
	if code != http.StatusOK {
		t.Fatalf("save code = %d", code)
	}

	var profiles []api.Profile
	if code := getJSON(t, base+"/api/profiles/", "", &profiles); code != http.StatusOK {
		t.Fatalf("list code = %d", code)
	}
	if len(profiles) != 1 || profiles[0].Port != 8088 {
		t.Fatalf("profiles = %+v", profiles)
	}
}

func TestSecondDaemonInstanceRefused(t *testing.T) {
	d, _ := startTestDaemon(t, "")

	cfg := config.Default()
	cfg.DataDir = filepath.Dir(d.lockPath)
	cfg.API.Bind = "127.0.0.1:0"

	fake := &fakeVMix{document: testDocument}
	ctl := controller.New(&cfg, nil, controller.Options{
		ClientFactory: func(host string, port int) vmix.Client { return fake },
	})
	second, err := New(&cfg, ctl, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance should be refused by the lock")
	}
}

func TestHistoryLimitValidation(t *testing.T) {
	_, base := startTestDaemon(t, "")

	code := getJSON(t, fmt.Sprintf("%s/api/history?limit=%d", base, -3), "", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", code)
	}
}
