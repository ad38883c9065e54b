package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"vmixctl/internal/state"
	"vmixctl/internal/vmix"
)

func twoCameraSnapshot() *state.Snapshot {
	return &state.Snapshot{
		Inputs: []state.Input{
			{ID: "1", Number: 1, Name: "Cam1"},
			{ID: "2", Number: 2, Name: "Cam2"},
		},
		ActiveID:   "2",
		PreviewID:  "1",
		CapturedAt: time.Now().UTC(),
	}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) sink(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) resolved() []PendingCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PendingCommand
	for _, ev := range r.events {
		if ev.Type == EventCommandResolved && ev.Command != nil {
			out = append(out, *ev.Command)
		}
	}
	return out
}

func TestIngestReplacesSnapshot(t *testing.T) {
	e := New(0, nil, nil)
	if e.Snapshot() != nil {
		t.Fatal("snapshot should be nil before first poll")
	}

	first := twoCameraSnapshot()
	e.IngestSnapshot(first)
	second := twoCameraSnapshot()
	second.PreviewID = "2"
	e.IngestSnapshot(second)

	if got := e.Snapshot(); got != second {
		t.Fatalf("snapshot = %p, want most recent %p", got, second)
	}
	if e.CurrentView().PreviewID != "2" {
		t.Fatal("view should reflect the latest snapshot")
	}
}

func TestSubmitAppliesOptimisticValueImmediately(t *testing.T) {
	e := New(0, nil, nil)
	e.IngestSnapshot(twoCameraSnapshot())

	if _, err := e.Submit(vmix.Command{Kind: vmix.KindPreview, Input: "2"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	view := e.CurrentView()
	if view.PreviewID != "2" {
		t.Fatalf("optimistic preview = %q, want 2", view.PreviewID)
	}
	if view.Snapshot.PreviewID != "1" {
		t.Fatal("confirmed snapshot must be untouched")
	}
	if len(view.Pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(view.Pending))
	}
}

func TestNewerCommandSupersedesSameField(t *testing.T) {
	rec := &eventRecorder{}
	e := New(0, nil, rec.sink)
	e.IngestSnapshot(twoCameraSnapshot())

	if _, err := e.Submit(vmix.Command{Kind: vmix.KindPreview, Input: "2"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := e.Submit(vmix.Command{Kind: vmix.KindPreview, Input: "1"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	view := e.CurrentView()
	if view.PreviewID != "1" {
		t.Fatalf("optimistic preview = %q, want the newer target 1", view.PreviewID)
	}
	if len(view.Pending) != 1 {
		t.Fatalf("pending = %d, want 1 after supersede", len(view.Pending))
	}
	resolved := rec.resolved()
	if len(resolved) != 1 || resolved[0].Status != StatusSuperseded {
		t.Fatalf("resolved = %+v, want one superseded (never failed)", resolved)
	}
}

func TestAcknowledgedWithinOneIngestion(t *testing.T) {
	rec := &eventRecorder{}
	e := New(0, nil, rec.sink)
	e.IngestSnapshot(twoCameraSnapshot())

	if _, err := e.Submit(vmix.Command{Kind: vmix.KindPreview, Input: "2"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	confirming := twoCameraSnapshot()
	confirming.PreviewID = "2"
	e.IngestSnapshot(confirming)

	view := e.CurrentView()
	if len(view.Pending) != 0 {
		t.Fatalf("pending = %d, want empty after confirmation", len(view.Pending))
	}
	if view.PreviewID != "2" {
		t.Fatalf("view preview = %q, want 2", view.PreviewID)
	}

	resolved := rec.resolved()
	if len(resolved) != 1 || resolved[0].Status != StatusAcknowledged {
		t.Fatalf("resolved = %+v, want one acknowledged", resolved)
	}
}

func TestUnconfirmedCommandTimesOut(t *testing.T) {
	rec := &eventRecorder{}
	e := New(20*time.Millisecond, nil, rec.sink)
	e.IngestSnapshot(twoCameraSnapshot())

	if _, err := e.Submit(vmix.Command{Kind: vmix.KindPreview, Input: "2"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	e.IngestSnapshot(twoCameraSnapshot())

	if e.PendingCount() != 0 {
		t.Fatal("timed-out command should leave the pending set")
	}
	resolved := rec.resolved()
	if len(resolved) != 1 || resolved[0].Status != StatusTimedOut {
		t.Fatalf("resolved = %+v, want one timed out", resolved)
	}
}

func TestStaleTargetRefusedOnSubmit(t *testing.T) {
	e := New(0, nil, nil)
	e.IngestSnapshot(twoCameraSnapshot())

	_, err := e.Submit(vmix.Command{Kind: vmix.KindOverlaySet, Layer: 1, Input: "5"})
	if err == nil {
		t.Fatal("expected stale target error")
	}
	var stale *StaleTargetError
	if !errors.As(err, &stale) {
		t.Fatalf("expected StaleTargetError, got %T: %v", err, err)
	}

	view := e.CurrentView()
	if view.Overlays[0] != "" {
		t.Fatalf("overlay 1 = %q, want empty after refused command", view.Overlays[0])
	}
	if len(view.Pending) != 0 {
		t.Fatal("refused command must not register")
	}
}

func TestTargetVanishingFailsPendingCommand(t *testing.T) {
	rec := &eventRecorder{}
	e := New(time.Minute, nil, rec.sink)
	e.IngestSnapshot(twoCameraSnapshot())

	if _, err := e.Submit(vmix.Command{Kind: vmix.KindPreview, Input: "2"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	shrunk := &state.Snapshot{
		Inputs:     []state.Input{{ID: "1", Number: 1, Name: "Cam1"}},
		ActiveID:   "1",
		PreviewID:  "1",
		CapturedAt: time.Now().UTC(),
	}
	e.IngestSnapshot(shrunk)

	resolved := rec.resolved()
	if len(resolved) != 1 || resolved[0].Status != StatusFailed {
		t.Fatalf("resolved = %+v, want one failed", resolved)
	}
	if e.PendingCount() != 0 {
		t.Fatal("failed command should leave the pending set")
	}
}

func TestFadeToBlackToggleTracksDesiredState(t *testing.T) {
	e := New(0, nil, nil)
	e.IngestSnapshot(twoCameraSnapshot())

	pc, err := e.Submit(vmix.Command{Kind: vmix.KindFadeToBlack})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !pc.WantFadeToBlack {
		t.Fatal("toggle from off should want FTB on")
	}
	if !e.CurrentView().FadeToBlack {
		t.Fatal("optimistic view should show FTB on")
	}

	confirming := twoCameraSnapshot()
	confirming.FadeToBlack = true
	e.IngestSnapshot(confirming)
	if e.PendingCount() != 0 {
		t.Fatal("FTB toggle should be acknowledged")
	}

	// A second toggle from the confirmed on state wants off again.
	pc, err = e.Submit(vmix.Command{Kind: vmix.KindFadeToBlack})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if pc.WantFadeToBlack {
		t.Fatal("toggle from on should want FTB off")
	}
	if e.CurrentView().FadeToBlack {
		t.Fatal("optimistic view should show FTB off")
	}
}

func TestOverlayClearOptimisticAndConfirmed(t *testing.T) {
	e := New(0, nil, nil)
	snap := twoCameraSnapshot()
	snap.Overlays[0] = "2"
	e.IngestSnapshot(snap)

	if _, err := e.Submit(vmix.Command{Kind: vmix.KindOverlayOut, Layer: 1}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := e.CurrentView().Overlays[0]; got != "" {
		t.Fatalf("optimistic overlay = %q, want empty", got)
	}

	e.IngestSnapshot(twoCameraSnapshot())
	if e.PendingCount() != 0 {
		t.Fatal("overlay clear should be acknowledged")
	}
}

func TestDispatcherFailRemovesPending(t *testing.T) {
	rec := &eventRecorder{}
	e := New(0, nil, rec.sink)
	e.IngestSnapshot(twoCameraSnapshot())

	pc, err := e.Submit(vmix.Command{Kind: vmix.KindPreview, Input: "2"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	e.Fail(pc.ID, "vmix rejected PreviewInput: status 500")

	if e.PendingCount() != 0 {
		t.Fatal("failed command should leave the pending set")
	}
	resolved := rec.resolved()
	if len(resolved) != 1 || resolved[0].Status != StatusFailed || resolved[0].Detail == "" {
		t.Fatalf("resolved = %+v, want one failed with detail", resolved)
	}
}

func TestResetFailsEverythingAndClearsSnapshot(t *testing.T) {
	rec := &eventRecorder{}
	e := New(time.Minute, nil, rec.sink)
	e.IngestSnapshot(twoCameraSnapshot())

	if _, err := e.Submit(vmix.Command{Kind: vmix.KindPreview, Input: "2"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := e.Submit(vmix.Command{Kind: vmix.KindFadeToBlack}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	e.Reset()

	if e.Snapshot() != nil {
		t.Fatal("snapshot should be nil after reset")
	}
	if e.PendingCount() != 0 {
		t.Fatal("pending set should be empty after reset")
	}
	resolved := rec.resolved()
	if len(resolved) != 2 {
		t.Fatalf("resolved = %d, want 2", len(resolved))
	}
	for _, pc := range resolved {
		if pc.Status != StatusFailed {
			t.Fatalf("status = %s, want failed", pc.Status)
		}
	}
}

func TestConcurrentSubmitAndIngest(t *testing.T) {
	e := New(time.Minute, nil, nil)
	e.IngestSnapshot(twoCameraSnapshot())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.Submit(vmix.Command{Kind: vmix.KindPreview, Input: "2"})
		}()
		go func() {
			defer wg.Done()
			e.IngestSnapshot(twoCameraSnapshot())
		}()
	}
	wg.Wait()

	if count := e.PendingCount(); count > 1 {
		t.Fatalf("pending = %d, want at most the single newest preview command", count)
	}
}
