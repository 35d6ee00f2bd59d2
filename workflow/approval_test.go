package workflow

import (
	"context"
	"testing"
)

func approvalTemplate(approvers ...string) Template {
	return Template{
		ID:   "release",
		Name: "Plan Release",
		Tasks: []TaskTemplate{
			{Name: "prepare", Type: TaskTypeManual, Approvers: approvers},
			{Name: "publish", Type: TaskTypeManual},
		},
	}
}

// startApprovalFlow creates and starts a workflow, completes the first
// task and returns the workflow with its task now waiting for approval.
func startApprovalFlow(t *testing.T, engine *Engine) *Workflow {
	t.Helper()
	ctx := context.Background()

	id, err := engine.CreateWorkflow("release", nil)
	if err != nil {
		t.Fatalf("CreateWorkflow failed: %v", err)
	}
	if err := engine.StartWorkflow(ctx, id); err != nil {
		t.Fatalf("StartWorkflow failed: %v", err)
	}
	w, _ := engine.GetWorkflow(id)
	if err := engine.CompleteTask(ctx, id, w.Tasks[0].ID, map[string]any{"plan": "v3"}); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	w, _ = engine.GetWorkflow(id)
	if w.Tasks[0].Status != TaskWaitingApproval {
		t.Fatalf("expected waiting_approval, got %s", w.Tasks[0].Status)
	}
	return w
}

func TestApprovalConsensus(t *testing.T) {
	ctx := context.Background()

	t.Run("all approvers must approve", func(t *testing.T) {
		engine, buf := newTestEngine(t, approvalTemplate("checker", "lead"))
		w := startApprovalFlow(t, engine)
		task := w.Tasks[0]
		if len(task.Approvals) != 2 {
			t.Fatalf("expected 2 approvals, got %d", len(task.Approvals))
		}

		err := engine.ApproveTask(ctx, w.ID, task.ID, task.Approvals[0].ID, true, "fine by me")
		if err != nil {
			t.Fatalf("first approval failed: %v", err)
		}

		// One verdict outstanding, nothing moves yet.
		cur, _ := engine.GetWorkflow(w.ID)
		if cur.Tasks[0].Status != TaskWaitingApproval {
			t.Fatalf("task advanced with pending approval: %s", cur.Tasks[0].Status)
		}

		err = engine.ApproveTask(ctx, w.ID, task.ID, task.Approvals[1].ID, true, "")
		if err != nil {
			t.Fatalf("second approval failed: %v", err)
		}

		cur, _ = engine.GetWorkflow(w.ID)
		if cur.Tasks[0].Status != TaskCompleted {
			t.Errorf("expected task completed after consensus, got %s", cur.Tasks[0].Status)
		}
		if cur.Tasks[0].Result["plan"] != "v3" {
			t.Errorf("result recorded at completion time lost: %v", cur.Tasks[0].Result)
		}
		if cur.Tasks[1].Status != TaskRunning {
			t.Errorf("next task did not start: %s", cur.Tasks[1].Status)
		}
		if got := buf.EventsByType(w.ID, EventTaskApproved); len(got) != 2 {
			t.Errorf("expected 2 %s events, got %d", EventTaskApproved, len(got))
		}
	})

	t.Run("single rejection fails the workflow", func(t *testing.T) {
		engine, buf := newTestEngine(t, approvalTemplate("checker", "lead"))
		w := startApprovalFlow(t, engine)
		task := w.Tasks[0]

		engine.ApproveTask(ctx, w.ID, task.ID, task.Approvals[0].ID, true, "")
		err := engine.ApproveTask(ctx, w.ID, task.ID, task.Approvals[1].ID, false, "fire code violation")
		if err != nil {
			t.Fatalf("rejection failed: %v", err)
		}

		cur, _ := engine.GetWorkflow(w.ID)
		if cur.Status != WorkflowFailed {
			t.Errorf("expected workflow failed, got %s", cur.Status)
		}
		if cur.Tasks[0].Status != TaskFailed {
			t.Errorf("expected task failed, got %s", cur.Tasks[0].Status)
		}
		if got := buf.EventsByType(w.ID, EventTaskRejected); len(got) != 1 {
			t.Errorf("expected one %s event, got %d", EventTaskRejected, len(got))
		}
	})

	t.Run("double vote rejected", func(t *testing.T) {
		// Two approvers keep the task pending after the first vote.
		engine, _ := newTestEngine(t, approvalTemplate("checker", "lead"))
		w := startApprovalFlow(t, engine)
		task := w.Tasks[0]

		if err := engine.ApproveTask(ctx, w.ID, task.ID, task.Approvals[0].ID, true, ""); err != nil {
			t.Fatalf("vote failed: %v", err)
		}
		err := engine.ApproveTask(ctx, w.ID, task.ID, task.Approvals[0].ID, true, "again")
		if !IsInvalidState(err) {
			t.Errorf("expected invalid-state error on double vote, got %v", err)
		}
	})

	t.Run("approval on unknown ids", func(t *testing.T) {
		engine, _ := newTestEngine(t, approvalTemplate("checker"))
		w := startApprovalFlow(t, engine)

		if err := engine.ApproveTask(ctx, w.ID, "ghost", "x", true, ""); !IsNotFound(err) {
			t.Errorf("expected not-found for unknown task, got %v", err)
		}
		if err := engine.ApproveTask(ctx, w.ID, w.Tasks[0].ID, "ghost", true, ""); !IsNotFound(err) {
			t.Errorf("expected not-found for unknown approval, got %v", err)
		}
	})

	t.Run("approval on task not waiting", func(t *testing.T) {
		engine, _ := newTestEngine(t, approvalTemplate())
		id, _ := engine.CreateWorkflow("release", nil)
		engine.StartWorkflow(ctx, id)
		w, _ := engine.GetWorkflow(id)

		err := engine.ApproveTask(ctx, id, w.Tasks[0].ID, "any", true, "")
		if !IsInvalidState(err) {
			t.Errorf("expected invalid-state error, got %v", err)
		}
	})
}

func TestDelegation(t *testing.T) {
	ctx := context.Background()

	t.Run("delegate hands the verdict to another approver", func(t *testing.T) {
		engine, buf := newTestEngine(t, approvalTemplate("checker"))
		w := startApprovalFlow(t, engine)
		task := w.Tasks[0]

		err := engine.DelegateApproval(ctx, w.ID, task.ID, task.Approvals[0].ID, "deputy", "on vacation")
		if err != nil {
			t.Fatalf("DelegateApproval failed: %v", err)
		}

		cur, _ := engine.GetWorkflow(w.ID)
		approvals := cur.Tasks[0].Approvals
		if len(approvals) != 2 {
			t.Fatalf("expected 2 approvals after delegation, got %d", len(approvals))
		}
		if approvals[0].Status != ApprovalDelegated {
			t.Errorf("source approval not retired: %s", approvals[0].Status)
		}
		if approvals[0].Comment != "on vacation" {
			t.Errorf("delegation comment not stored on retired approval: %q", approvals[0].Comment)
		}
		if approvals[1].Status != ApprovalPending || approvals[1].Approver != "deputy" {
			t.Errorf("delegate approval wrong: %+v", approvals[1])
		}
		if got := buf.EventsByType(w.ID, EventApprovalDelegated); len(got) != 1 {
			t.Errorf("expected one %s event, got %d", EventApprovalDelegated, len(got))
		} else if got[0].Data["comment"] != "on vacation" {
			t.Errorf("delegation event missing comment: %v", got[0].Data)
		}

		history, _ := engine.History(w.ID)
		var delegated *HistoryEvent
		for i := range history {
			if history[i].Type == EventApprovalDelegated {
				delegated = &history[i]
			}
		}
		if delegated == nil {
			t.Fatalf("no %s entry in history", EventApprovalDelegated)
		}
		if delegated.Data["comment"] != "on vacation" {
			t.Errorf("delegation history entry missing comment: %v", delegated.Data)
		}

		// The retired approval can no longer vote.
		err = engine.ApproveTask(ctx, w.ID, task.ID, approvals[0].ID, true, "")
		if !IsInvalidState(err) {
			t.Errorf("expected invalid-state voting on delegated approval, got %v", err)
		}

		// The delegate's verdict completes the task.
		if err := engine.ApproveTask(ctx, w.ID, task.ID, approvals[1].ID, true, "ok"); err != nil {
			t.Fatalf("delegate approval failed: %v", err)
		}
		cur, _ = engine.GetWorkflow(w.ID)
		if cur.Tasks[0].Status != TaskCompleted {
			t.Errorf("expected completed after delegate consensus, got %s", cur.Tasks[0].Status)
		}
	})

	t.Run("delegation chain", func(t *testing.T) {
		engine, _ := newTestEngine(t, approvalTemplate("checker"))
		w := startApprovalFlow(t, engine)
		task := w.Tasks[0]

		engine.DelegateApproval(ctx, w.ID, task.ID, task.Approvals[0].ID, "deputy", "")
		cur, _ := engine.GetWorkflow(w.ID)
		second := cur.Tasks[0].Approvals[1]
		engine.DelegateApproval(ctx, w.ID, task.ID, second.ID, "stand-in", "")

		cur, _ = engine.GetWorkflow(w.ID)
		approvals := cur.Tasks[0].Approvals
		if len(approvals) != 3 {
			t.Fatalf("expected 3 approvals after chained delegation, got %d", len(approvals))
		}
		pending := 0
		for _, a := range approvals {
			if a.Status == ApprovalPending {
				pending++
			}
		}
		if pending != 1 {
			t.Errorf("expected exactly one live approval, got %d", pending)
		}
	})
}
