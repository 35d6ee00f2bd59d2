package store

import (
	"context"
	"path/filepath"
	"testing"
)

// backends lists the stores testable without external services. MySQL is
// exercised against a real server in integration environments only.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemStore(),
		"sqlite": sqlite,
	}
}

func sampleSnapshot() map[string]any {
	return map[string]any{
		"id":     "w1",
		"name":   "RFI Review",
		"status": "created",
		"tasks": []any{
			map[string]any{"id": "t1", "name": "analyze", "status": "pending"},
		},
		"current_task_index": float64(0),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.SaveSnapshot(ctx, "w1", sampleSnapshot()); err != nil {
				t.Fatalf("SaveSnapshot failed: %v", err)
			}

			got, err := st.LoadSnapshot(ctx, "w1")
			if err != nil {
				t.Fatalf("LoadSnapshot failed: %v", err)
			}
			if got["name"] != "RFI Review" || got["status"] != "created" {
				t.Errorf("loaded snapshot = %v", got)
			}
			tasks, ok := got["tasks"].([]any)
			if !ok || len(tasks) != 1 {
				t.Errorf("nested structure lost: %v", got["tasks"])
			}
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	ctx := context.Background()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st.SaveSnapshot(ctx, "w1", map[string]any{"status": "created"})
			if err := st.SaveSnapshot(ctx, "w1", map[string]any{"status": "running"}); err != nil {
				t.Fatalf("second save failed: %v", err)
			}

			got, _ := st.LoadSnapshot(ctx, "w1")
			if got["status"] != "running" {
				t.Errorf("overwrite lost: %v", got["status"])
			}
			ids, _ := st.ListSnapshots(ctx)
			if len(ids) != 1 {
				t.Errorf("overwrite created duplicate: %v", ids)
			}
		})
	}
}

func TestStoreMissing(t *testing.T) {
	ctx := context.Background()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := st.LoadSnapshot(ctx, "ghost"); err != ErrNotFound {
				t.Errorf("LoadSnapshot missing = %v, want ErrNotFound", err)
			}
			// Deleting a missing snapshot is not an error.
			if err := st.DeleteSnapshot(ctx, "ghost"); err != nil {
				t.Errorf("DeleteSnapshot missing = %v, want nil", err)
			}
		})
	}
}

func TestStoreListAndDelete(t *testing.T) {
	ctx := context.Background()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st.SaveSnapshot(ctx, "w1", sampleSnapshot())
			st.SaveSnapshot(ctx, "w2", sampleSnapshot())

			ids, err := st.ListSnapshots(ctx)
			if err != nil {
				t.Fatalf("ListSnapshots failed: %v", err)
			}
			if len(ids) != 2 {
				t.Fatalf("ids = %v, want 2 entries", ids)
			}

			if err := st.DeleteSnapshot(ctx, "w1"); err != nil {
				t.Fatalf("DeleteSnapshot failed: %v", err)
			}
			if _, err := st.LoadSnapshot(ctx, "w1"); err != ErrNotFound {
				t.Errorf("deleted snapshot still loadable: %v", err)
			}
			if _, err := st.LoadSnapshot(ctx, "w2"); err != nil {
				t.Errorf("delete removed wrong snapshot: %v", err)
			}
		})
	}
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots.db")

	st, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := st.SaveSnapshot(ctx, "w1", sampleSnapshot()); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.LoadSnapshot(ctx, "w1")
	if err != nil {
		t.Fatalf("LoadSnapshot after reopen failed: %v", err)
	}
	if got["name"] != "RFI Review" {
		t.Errorf("snapshot lost across reopen: %v", got)
	}
}
