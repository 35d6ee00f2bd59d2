package workflow

import (
	"context"

	"github.com/google/uuid"
)

// ApproveTask records one approver's verdict on a task that is waiting
// for approval. Consensus is unanimous: the task completes only once
// every pending approval is approved, and a single rejection fails the
// task and the workflow immediately, regardless of other verdicts.
//
// The approval must still be pending; voting twice, or voting on a
// retired (delegated) approval, returns an InvalidStateError.
func (e *Engine) ApproveTask(ctx context.Context, workflowID, taskID, approvalID string, approved bool, comment string) error {
	w, lock, err := e.lookup(workflowID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	t, _ := w.task(taskID)
	if t == nil {
		return &NotFoundError{Kind: "task", ID: taskID}
	}
	if t.Status != TaskWaitingApproval {
		return &InvalidStateError{Kind: "task", ID: taskID, Status: string(t.Status), Op: "approve"}
	}

	a := findApproval(t, approvalID)
	if a == nil {
		return &NotFoundError{Kind: "approval", ID: approvalID}
	}
	if a.Status != ApprovalPending {
		return &InvalidStateError{Kind: "approval", ID: approvalID, Status: string(a.Status), Op: "approve"}
	}

	now := e.now()
	a.Comment = comment
	a.UpdatedAt = now
	a.CompletedAt = &now

	if approved {
		a.Status = ApprovalApproved
		e.metrics.approval("approved")
		e.record(w, t.ID, EventTaskApproved, map[string]any{
			"task_name":   t.Name,
			"approval_id": a.ID,
			"approver":    a.Approver,
			"comment":     comment,
		})
	} else {
		a.Status = ApprovalRejected
		e.metrics.approval("rejected")
		e.record(w, t.ID, EventTaskRejected, map[string]any{
			"task_name":   t.Name,
			"approval_id": a.ID,
			"approver":    a.Approver,
			"comment":     comment,
		})
		e.failTask(w, t, "rejected by "+a.Approver)
		return nil
	}

	// Unanimity check over live approvals; delegated entries are retired
	// and do not count.
	for _, other := range t.Approvals {
		if other.Status == ApprovalPending {
			w.UpdatedAt = now
			return nil
		}
	}

	e.completeTaskLocked(ctx, w, t, nil)
	return nil
}

// DelegateApproval hands a pending approval to another approver. The
// source approval is retired with the delegated status, the comment is
// stored on it, and a fresh pending approval for the delegate is
// appended; the audit trail keeps both entries.
func (e *Engine) DelegateApproval(ctx context.Context, workflowID, taskID, approvalID, delegate, comment string) error {
	w, lock, err := e.lookup(workflowID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	t, _ := w.task(taskID)
	if t == nil {
		return &NotFoundError{Kind: "task", ID: taskID}
	}
	if t.Status != TaskWaitingApproval {
		return &InvalidStateError{Kind: "task", ID: taskID, Status: string(t.Status), Op: "delegate"}
	}

	a := findApproval(t, approvalID)
	if a == nil {
		return &NotFoundError{Kind: "approval", ID: approvalID}
	}
	if a.Status != ApprovalPending {
		return &InvalidStateError{Kind: "approval", ID: approvalID, Status: string(a.Status), Op: "delegate"}
	}

	now := e.now()
	a.Status = ApprovalDelegated
	a.Comment = comment
	a.UpdatedAt = now
	a.CompletedAt = &now

	next := &Approval{
		ID:        uuid.NewString(),
		Approver:  delegate,
		Status:    ApprovalPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.Approvals = append(t.Approvals, next)
	t.UpdatedAt = now
	w.UpdatedAt = now

	e.metrics.approval("delegated")
	e.record(w, t.ID, EventApprovalDelegated, map[string]any{
		"task_name":       t.Name,
		"approval_id":     a.ID,
		"new_approval_id": next.ID,
		"from":            a.Approver,
		"to":              delegate,
		"comment":         comment,
	})
	e.notifyApprover(ctx, w, t, next)
	return nil
}

func findApproval(t *Task, approvalID string) *Approval {
	for _, a := range t.Approvals {
		if a.ID == approvalID {
			return a
		}
	}
	return nil
}
