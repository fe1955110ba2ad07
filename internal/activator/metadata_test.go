package activator

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *MetadataStore {
	t.Helper()
	store, err := OpenMetadataStore(filepath.Join(t.TempDir(), "metadata.db"))
	if err != nil {
		t.Fatalf("OpenMetadataStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMetadataStore_PutGetRoundTrip(t *testing.T) {
	store := openTestStore(t)

	rec := Record{ID: "dep-1", Stage: StageDefault, Policy: PolicyRollback, SnapshotPath: "/tmp/x.tlog", Cursor: 0}
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := store.Get("dep-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected record to be found")
	}
	if got != rec {
		t.Fatalf("got %+v, want %+v", got, rec)
	}
}

func TestMetadataStore_GetMissing(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Get("nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected not found")
	}
}

func TestMetadataStore_PendingLifecycle(t *testing.T) {
	store := openTestStore(t)

	if _, ok, err := store.GetPending(); err != nil || ok {
		t.Fatalf("expected no pending deployment initially, ok=%v err=%v", ok, err)
	}

	rec := Record{ID: "dep-2", Stage: StageBootstrap, Policy: PolicyRollback, SnapshotPath: "/tmp/y.tlog"}
	if err := store.MarkPending(rec); err != nil {
		t.Fatalf("MarkPending: %v", err)
	}

	got, ok, err := store.GetPending()
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if !ok {
		t.Fatal("expected a pending deployment")
	}
	if got.ID != "dep-2" {
		t.Fatalf("pending ID = %q, want dep-2", got.ID)
	}

	if err := store.ClearPending(); err != nil {
		t.Fatalf("ClearPending: %v", err)
	}
	if _, ok, err := store.GetPending(); err != nil || ok {
		t.Fatalf("expected no pending deployment after clear, ok=%v err=%v", ok, err)
	}

	// The per-ID record itself must survive clearing the pending marker.
	got, ok, err = store.Get("dep-2")
	if err != nil || !ok {
		t.Fatalf("expected dep-2 record to still exist after ClearPending, ok=%v err=%v", ok, err)
	}
	if got.Stage != StageBootstrap {
		t.Fatalf("stage = %v, want %v", got.Stage, StageBootstrap)
	}
}

func TestMetadataStore_PendingReflectsAdvancedCursor(t *testing.T) {
	store := openTestStore(t)

	rec := Record{ID: "dep-3", Stage: StageBootstrap, Policy: PolicyRollback, SnapshotPath: "/tmp/z.tlog"}
	if err := store.MarkPending(rec); err != nil {
		t.Fatalf("MarkPending: %v", err)
	}

	// Simulate RunBootstrap advancing the cursor after a task commits.
	if err := store.advanceCursor("dep-3", 2); err != nil {
		t.Fatalf("advanceCursor: %v", err)
	}

	got, ok, err := store.GetPending()
	if err != nil || !ok {
		t.Fatalf("GetPending: ok=%v err=%v", ok, err)
	}
	if got.Cursor != 2 {
		t.Fatalf("pending cursor = %d, want 2 (must reflect advanceCursor, not a stale copy)", got.Cursor)
	}
}

func TestMetadataStore_AdvanceCursorUnknownDeployment(t *testing.T) {
	store := openTestStore(t)

	if err := store.advanceCursor("missing", 1); err == nil {
		t.Fatal("expected error advancing cursor for a deployment with no record")
	}
}
