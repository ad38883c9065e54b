package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndResolve(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:          "cmd-1",
		Kind:        "preview",
		InputID:     "2",
		SubmittedAt: time.Now().UTC(),
		Status:      "pending",
	}
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Resolve(ctx, "cmd-1", "acknowledged", ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	entries, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	got := entries[0]
	if got.Status != "acknowledged" {
		t.Fatalf("status = %q", got.Status)
	}
	if got.ResolvedAt == nil {
		t.Fatal("resolved_at should be set")
	}
	if got.Kind != "preview" || got.InputID != "2" {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"a", "b", "c"} {
		entry := Entry{
			ID:          id,
			Kind:        "preview",
			SubmittedAt: base.Add(time.Duration(i) * time.Second),
			Status:      "pending",
		}
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	entries, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "c" || entries[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", entries)
	}
}

func TestPruneRemovesOldEntries(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	old := Entry{ID: "old", Kind: "ftb", SubmittedAt: time.Now().UTC().Add(-48 * time.Hour), Status: "acknowledged"}
	fresh := Entry{ID: "fresh", Kind: "ftb", SubmittedAt: time.Now().UTC(), Status: "pending"}
	for _, entry := range []Entry{old, fresh} {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	removed, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	entries, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "fresh" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.SaveProfile(ctx, Profile{Name: "studio", Host: "10.0.0.5", Port: 8088}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	// Upsert replaces.
	if err := store.SaveProfile(ctx, Profile{Name: "studio", Host: "10.0.0.9", Port: 8188}); err != nil {
		t.Fatalf("SaveProfile update: %v", err)
	}

	profile, err := store.GetProfile(ctx, "studio")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.Host != "10.0.0.9" || profile.Port != 8188 {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("profiles = %d, want 1", len(profiles))
	}

	if err := store.DeleteProfile(ctx, "studio"); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if _, err := store.GetProfile(ctx, "studio"); err == nil {
		t.Fatal("expected missing profile error")
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Record(context.Background(), Entry{ID: "x", Kind: "preview", SubmittedAt: time.Now().UTC(), Status: "pending"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	entries, err := reopened.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d after reopen, want 1", len(entries))
	}
}
