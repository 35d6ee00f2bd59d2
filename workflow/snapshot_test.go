package workflow

import (
	"context"
	"testing"

	"github.com/Kevin180791/dob-mvp-enhanced/workflow/store"
)

func TestExportImport(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip regenerates ids", func(t *testing.T) {
		engine, _ := newTestEngine(t, reviewTemplate())
		id, _ := engine.CreateWorkflow("rfi_review", map[string]any{"project": "Campus B"})

		snapshot, err := engine.ExportWorkflow(id)
		if err != nil {
			t.Fatalf("ExportWorkflow failed: %v", err)
		}
		if snapshot["id"] != id {
			t.Errorf("snapshot id = %v, want %s", snapshot["id"], id)
		}

		newID, err := engine.ImportWorkflow(snapshot)
		if err != nil {
			t.Fatalf("ImportWorkflow failed: %v", err)
		}
		if newID == id {
			t.Fatal("import reused the source workflow id")
		}

		src, _ := engine.GetWorkflow(id)
		imported, _ := engine.GetWorkflow(newID)

		srcIDs := map[string]bool{}
		for _, task := range src.Tasks {
			srcIDs[task.ID] = true
		}
		for _, task := range imported.Tasks {
			if srcIDs[task.ID] {
				t.Errorf("imported task id %s collides with source", task.ID)
			}
		}
		if imported.Data["project"] != "Campus B" {
			t.Errorf("workflow data lost on import: %v", imported.Data)
		}
	})

	t.Run("dependencies rewritten through translation", func(t *testing.T) {
		engine, _ := newTestEngine(t, reviewTemplate())
		id, _ := engine.CreateWorkflow("rfi_review", nil)
		snapshot, _ := engine.ExportWorkflow(id)

		newID, _ := engine.ImportWorkflow(snapshot)
		imported, _ := engine.GetWorkflow(newID)

		if len(imported.Tasks[1].Dependencies) != 1 {
			t.Fatalf("expected 1 dependency, got %d", len(imported.Tasks[1].Dependencies))
		}
		if imported.Tasks[1].Dependencies[0] != imported.Tasks[0].ID {
			t.Errorf("dependency not rewritten to new task id")
		}
	})

	t.Run("import preserves execution state", func(t *testing.T) {
		engine, _ := newTestEngine(t, reviewTemplate())
		engine.RegisterHandler("auto", func(ctx context.Context, workflowID, taskID string, data map[string]any) (map[string]any, error) {
			return map[string]any{"done": true}, nil
		})
		id, _ := engine.CreateWorkflow("rfi_review", nil)
		engine.StartWorkflow(ctx, id)

		src, _ := engine.GetWorkflow(id)
		if src.Status != WorkflowCompleted {
			t.Fatalf("setup: expected completed source, got %s", src.Status)
		}
		srcHistory, _ := engine.History(id)

		snapshot, _ := engine.ExportWorkflow(id)
		newID, _ := engine.ImportWorkflow(snapshot)
		imported, _ := engine.GetWorkflow(newID)

		if imported.Status != WorkflowCompleted {
			t.Errorf("imported status = %s, want %s", imported.Status, WorkflowCompleted)
		}
		if imported.CurrentTaskIndex != src.CurrentTaskIndex {
			t.Errorf("imported cursor = %d, want %d", imported.CurrentTaskIndex, src.CurrentTaskIndex)
		}
		for i, task := range imported.Tasks {
			if task.Status != src.Tasks[i].Status {
				t.Errorf("task %s: imported status = %s, want %s", task.Name, task.Status, src.Tasks[i].Status)
			}
			if task.Result == nil {
				t.Errorf("task %s: result lost on import", task.Name)
			}
		}
		history, _ := engine.History(newID)
		if len(history) != len(srcHistory)+1 {
			t.Fatalf("imported history has %d entries, want %d", len(history), len(srcHistory)+1)
		}
		for i, ev := range srcHistory {
			if history[i].Type != ev.Type {
				t.Errorf("history[%d] = %s, want %s", i, history[i].Type, ev.Type)
			}
		}
		last := history[len(history)-1]
		if last.Type != EventWorkflowImported || last.Data["source_id"] != id {
			t.Errorf("final history entry = %+v, want %s from %s", last, EventWorkflowImported, id)
		}

		// A completed import stays completed; only a fresh run through
		// CreateWorkflow starts over.
		if err := engine.StartWorkflow(ctx, newID); !IsInvalidState(err) {
			t.Errorf("expected invalid-state starting a completed import, got %v", err)
		}
	})

	t.Run("import keeps delegation audit state", func(t *testing.T) {
		engine, _ := newTestEngine(t, approvalTemplate("checker"))
		w := startApprovalFlow(t, engine)
		task := w.Tasks[0]
		if err := engine.DelegateApproval(ctx, w.ID, task.ID, task.Approvals[0].ID, "deputy", "handover"); err != nil {
			t.Fatalf("DelegateApproval failed: %v", err)
		}

		snapshot, _ := engine.ExportWorkflow(w.ID)
		newID, _ := engine.ImportWorkflow(snapshot)
		imported, _ := engine.GetWorkflow(newID)

		approvals := imported.Tasks[0].Approvals
		if len(approvals) != 2 {
			t.Fatalf("expected 2 approvals after import, got %d", len(approvals))
		}
		if approvals[0].Status != ApprovalDelegated {
			t.Errorf("retired approval revived on import: %s", approvals[0].Status)
		}
		if approvals[0].Comment != "handover" {
			t.Errorf("delegation comment lost on import: %q", approvals[0].Comment)
		}
		if approvals[1].Status != ApprovalPending || approvals[1].Approver != "deputy" {
			t.Errorf("live approval wrong after import: %+v", approvals[1])
		}

		// The delegate's sole verdict still completes the task: the
		// retired entry does not rejoin the unanimity set.
		if err := engine.ApproveTask(ctx, newID, imported.Tasks[0].ID, approvals[1].ID, true, "ok"); err != nil {
			t.Fatalf("approving imported workflow failed: %v", err)
		}
		imported, _ = engine.GetWorkflow(newID)
		if imported.Tasks[0].Status != TaskCompleted {
			t.Errorf("expected completed after delegate consensus, got %s", imported.Tasks[0].Status)
		}
	})

	t.Run("export mutation does not leak", func(t *testing.T) {
		engine, _ := newTestEngine(t, reviewTemplate())
		id, _ := engine.CreateWorkflow("rfi_review", nil)

		snapshot, _ := engine.ExportWorkflow(id)
		snapshot["name"] = "tampered"

		w, _ := engine.GetWorkflow(id)
		if w.Name == "tampered" {
			t.Error("export leaked internal state")
		}
	})

	t.Run("invalid snapshot", func(t *testing.T) {
		engine, _ := newTestEngine(t, reviewTemplate())
		if _, err := engine.ImportWorkflow(map[string]any{"tasks": "not a list"}); err == nil {
			t.Error("expected error for malformed snapshot")
		}
		if _, err := engine.ImportWorkflow(map[string]any{}); err == nil {
			t.Error("expected error for snapshot without id")
		}
	})
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("save and restore", func(t *testing.T) {
		st := store.NewMemStore()
		engine, _ := newTestEngine(t, reviewTemplate(), WithStore(st))
		id, _ := engine.CreateWorkflow("rfi_review", map[string]any{"project": "Campus B"})

		if err := engine.SaveWorkflow(ctx, id); err != nil {
			t.Fatalf("SaveWorkflow failed: %v", err)
		}

		ids, err := engine.SavedWorkflows(ctx)
		if err != nil {
			t.Fatalf("SavedWorkflows failed: %v", err)
		}
		if len(ids) != 1 || ids[0] != id {
			t.Errorf("saved ids = %v, want [%s]", ids, id)
		}

		// A second engine sharing the store picks the workflow up with
		// ids and state intact.
		restored, _ := newTestEngine(t, reviewTemplate(), WithStore(st))
		if err := restored.RestoreWorkflow(ctx, id); err != nil {
			t.Fatalf("RestoreWorkflow failed: %v", err)
		}
		w, err := restored.GetWorkflow(id)
		if err != nil {
			t.Fatalf("restored workflow not found: %v", err)
		}
		if w.Data["project"] != "Campus B" {
			t.Errorf("restored data = %v", w.Data)
		}
		if err := restored.StartWorkflow(ctx, id); err != nil {
			t.Errorf("restored workflow not operable: %v", err)
		}
	})

	t.Run("delete snapshot", func(t *testing.T) {
		st := store.NewMemStore()
		engine, _ := newTestEngine(t, reviewTemplate(), WithStore(st))
		id, _ := engine.CreateWorkflow("rfi_review", nil)
		engine.SaveWorkflow(ctx, id)

		if err := engine.DeleteSnapshot(ctx, id); err != nil {
			t.Fatalf("DeleteSnapshot failed: %v", err)
		}
		if err := engine.RestoreWorkflow(ctx, id); !IsNotFound(err) {
			t.Errorf("expected not-found after delete, got %v", err)
		}
	})

	t.Run("no store configured", func(t *testing.T) {
		engine, _ := newTestEngine(t, reviewTemplate())
		id, _ := engine.CreateWorkflow("rfi_review", nil)

		if err := engine.SaveWorkflow(ctx, id); err != ErrNoStore {
			t.Errorf("expected ErrNoStore, got %v", err)
		}
		if err := engine.RestoreWorkflow(ctx, id); err != ErrNoStore {
			t.Errorf("expected ErrNoStore, got %v", err)
		}
	})
}
