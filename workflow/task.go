package workflow

import (
	"context"
)

// advance drives the workflow's cursor forward. It runs the current task
// if its dependencies are satisfied, parks the workflow in the waiting
// status if they are not, and completes the workflow once the cursor
// passes the last task. The caller holds the workflow's lock.
func (e *Engine) advance(ctx context.Context, w *Workflow) {
	if w.Status.Terminal() {
		return
	}

	if w.CurrentTaskIndex >= len(w.Tasks) {
		now := e.now()
		w.Status = WorkflowCompleted
		w.UpdatedAt = now
		w.CompletedAt = &now
		e.record(w, "", EventWorkflowCompleted, map[string]any{"workflow_name": w.Name})
		e.metrics.workflowFinished(WorkflowCompleted)
		return
	}

	t := w.Tasks[w.CurrentTaskIndex]

	if missing := e.unmetDependencies(w, t); len(missing) > 0 {
		// Dependencies on later or unknown tasks can never be met from
		// here: the cursor only moves forward. The workflow parks until
		// cancelled.
		if w.Status != WorkflowWaiting {
			w.Status = WorkflowWaiting
			w.UpdatedAt = e.now()
			e.record(w, t.ID, EventWorkflowWaiting, map[string]any{
				"task_name":            t.Name,
				"missing_dependencies": missing,
			})
		}
		return
	}

	if w.Status == WorkflowWaiting {
		w.Status = WorkflowRunning
		w.UpdatedAt = e.now()
	}

	if t.Status == TaskPending {
		now := e.now()
		t.Status = TaskRunning
		t.StartedAt = &now
		t.UpdatedAt = now
		w.UpdatedAt = now
		e.record(w, t.ID, EventTaskStarted, map[string]any{
			"task_name": t.Name,
			"task_type": t.Type,
		})
	}

	e.executeTask(ctx, w, t, false)
}

// unmetDependencies returns the dependency ids of t that do not refer to a
// completed task. A dependency naming no task at all counts as unmet.
func (e *Engine) unmetDependencies(w *Workflow, t *Task) []string {
	var missing []string
	for _, dep := range t.Dependencies {
		d, _ := w.task(dep)
		if d == nil || d.Status != TaskCompleted {
			missing = append(missing, dep)
		}
	}
	return missing
}

// executeTask dispatches a running task. Handler types run their handler
// synchronously; manual tasks stay running until completed by a caller;
// input tasks park in the waiting-for-input status. inputProvided marks a
// re-dispatch after ProvideInput, so an input task without a handler
// completes via manual semantics instead of asking again.
func (e *Engine) executeTask(ctx context.Context, w *Workflow, t *Task, inputProvided bool) {
	if t.Status != TaskRunning {
		return
	}

	e.mu.RLock()
	handler := e.handlers[t.Type]
	e.mu.RUnlock()

	switch {
	case handler != nil:
		result, err := handler(ctx, w.ID, t.ID, cloneData(t.Data))
		if err != nil {
			herr := &HandlerError{TaskType: t.Type, Err: err}
			e.failTask(w, t, herr.Error())
			return
		}
		e.completeTaskLocked(ctx, w, t, result)

	case t.Type == TaskTypeManual:
		// Stays running until CompleteTask is called.
		e.notifyAssignee(ctx, w, t)

	case t.Type == TaskTypeInput:
		if inputProvided {
			// Input was just supplied and no handler consumes it; treat
			// as manual from here so the task can be completed.
			return
		}
		t.Status = TaskWaitingInput
		t.UpdatedAt = e.now()
		w.UpdatedAt = t.UpdatedAt
		e.record(w, t.ID, EventTaskWaitingInput, map[string]any{"task_name": t.Name})
		e.notifyAssignee(ctx, w, t)

	default:
		e.failTask(w, t, "no handler registered for task type "+t.Type)
	}
}

// CompleteTask marks a manual or input task as done and advances the
// workflow. The task must currently be running or waiting for input; the
// result is stored on the task. If the task names approvers, it moves to
// the waiting-for-approval status instead of completing outright.
func (e *Engine) CompleteTask(ctx context.Context, workflowID, taskID string, result map[string]any) error {
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
	if t.Status != TaskRunning && t.Status != TaskWaitingInput {
		return &InvalidStateError{Kind: "task", ID: taskID, Status: string(t.Status), Op: "complete"}
	}

	e.completeTaskLocked(ctx, w, t, result)
	return nil
}

// completeTaskLocked finishes a task, routes it through approval when
// approvers are named, and otherwise moves the cursor past it. The caller
// holds the workflow's lock.
func (e *Engine) completeTaskLocked(ctx context.Context, w *Workflow, t *Task, result map[string]any) {
	now := e.now()

	if len(t.Approvers) > 0 && t.Status != TaskWaitingApproval {
		t.Status = TaskWaitingApproval
		t.Result = cloneData(result)
		t.UpdatedAt = now
		w.UpdatedAt = now
		e.record(w, t.ID, EventTaskWaitingApproval, map[string]any{
			"task_name": t.Name,
			"approvers": cloneStrings(t.Approvers),
		})
		for _, a := range t.Approvals {
			if a.Status == ApprovalPending {
				e.notifyApprover(ctx, w, t, a)
			}
		}
		return
	}

	t.Status = TaskCompleted
	if result != nil {
		t.Result = cloneData(result)
	}
	t.UpdatedAt = now
	t.CompletedAt = &now
	w.UpdatedAt = now
	e.record(w, t.ID, EventTaskCompleted, map[string]any{"task_name": t.Name})
	e.metrics.taskFinished(t, now)

	if idx := e.indexOf(w, t.ID); idx >= 0 {
		w.CurrentTaskIndex = idx + 1
	}
	e.advance(ctx, w)
}

// ProvideInput supplies data to a task waiting for input and resumes it.
// The input is merged into the task's data under the "input" key, then the
// task is re-dispatched: a registered handler for its type consumes the
// input, otherwise the task returns to running and waits for CompleteTask.
func (e *Engine) ProvideInput(ctx context.Context, workflowID, taskID string, input map[string]any) error {
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
	if t.Status != TaskWaitingInput {
		return &InvalidStateError{Kind: "task", ID: taskID, Status: string(t.Status), Op: "provide_input"}
	}

	now := e.now()
	if t.Data == nil {
		t.Data = make(map[string]any)
	}
	t.Data["input"] = cloneData(input)
	t.Status = TaskRunning
	t.UpdatedAt = now
	w.UpdatedAt = now
	e.record(w, t.ID, EventInputProvided, map[string]any{"task_name": t.Name})

	e.executeTask(ctx, w, t, true)
	return nil
}

// failTask marks the task failed and cascades the failure to the
// workflow. The caller holds the workflow's lock.
func (e *Engine) failTask(w *Workflow, t *Task, reason string) {
	now := e.now()
	t.Status = TaskFailed
	t.Error = reason
	t.UpdatedAt = now
	t.CompletedAt = &now
	e.record(w, t.ID, EventTaskFailed, map[string]any{
		"task_name": t.Name,
		"reason":    reason,
	})
	e.metrics.taskFinished(t, now)
	e.failWorkflow(w, "task "+t.Name+" failed: "+reason)
}

// failWorkflow moves the workflow to the failed status. The caller holds
// the workflow's lock.
func (e *Engine) failWorkflow(w *Workflow, reason string) {
	if w.Status.Terminal() {
		return
	}
	w.Status = WorkflowFailed
	w.UpdatedAt = e.now()
	e.record(w, "", EventWorkflowFailed, map[string]any{
		"workflow_name": w.Name,
		"reason":        reason,
	})
	e.metrics.workflowFinished(WorkflowFailed)
}

// indexOf returns the position of the task in the workflow's task list,
// or -1.
func (e *Engine) indexOf(w *Workflow, taskID string) int {
	_, idx := w.task(taskID)
	return idx
}
