package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Kevin180791/dob-mvp-enhanced/workflow/store"
)

// ExportWorkflow serializes the full workflow state, history included,
// into a plain map suitable for JSON transport. The export is a deep
// copy; mutating it does not touch the live workflow.
func (e *Engine) ExportWorkflow(workflowID string) (map[string]any, error) {
	w, lock, err := e.lookup(workflowID)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()
	return marshalWorkflow(w)
}

// ImportWorkflow registers a new workflow from a previously exported
// snapshot. Every workflow, task, and approval id is regenerated so the
// import never collides with the source workflow, and task dependencies
// are rewritten through the id translation; a dependency on an id absent
// from the snapshot is dropped. Everything else carries over unchanged:
// statuses, cursor, results, and the full history, with only the
// creation/update timestamps refreshed and an import event appended.
//
// Returns the new workflow id.
func (e *Engine) ImportWorkflow(snapshot map[string]any) (string, error) {
	w, err := unmarshalWorkflow(snapshot)
	if err != nil {
		return "", err
	}

	now := e.now()
	oldID := w.ID
	w.ID = uuid.NewString()
	w.CreatedAt = now
	w.UpdatedAt = now

	translate := make(map[string]string, len(w.Tasks))
	for _, t := range w.Tasks {
		id := uuid.NewString()
		translate[t.ID] = id
		t.ID = id
		t.CreatedAt = now
		t.UpdatedAt = now
		for _, a := range t.Approvals {
			a.ID = uuid.NewString()
			a.CreatedAt = now
			a.UpdatedAt = now
		}
	}
	for _, t := range w.Tasks {
		deps := t.Dependencies[:0]
		for _, dep := range t.Dependencies {
			if id, ok := translate[dep]; ok {
				deps = append(deps, id)
			}
		}
		t.Dependencies = deps
	}

	lock := &sync.Mutex{}
	e.mu.Lock()
	e.workflows[w.ID] = w
	e.locks[w.ID] = lock
	e.mu.Unlock()

	lock.Lock()
	e.record(w, "", EventWorkflowImported, map[string]any{
		"workflow_name": w.Name,
		"source_id":     oldID,
	})
	lock.Unlock()
	e.metrics.workflowCreated()
	return w.ID, nil
}

// SaveWorkflow persists the workflow's current snapshot to the
// configured store. Returns ErrNoStore when the engine has none.
func (e *Engine) SaveWorkflow(ctx context.Context, workflowID string) error {
	if e.store == nil {
		return ErrNoStore
	}
	snapshot, err := e.ExportWorkflow(workflowID)
	if err != nil {
		return err
	}
	return e.store.SaveSnapshot(ctx, workflowID, snapshot)
}

// RestoreWorkflow loads a persisted snapshot and registers it as a live
// workflow, ids and state intact. Unlike ImportWorkflow, restore keeps
// the original ids, so it resumes the same workflow rather than spawning
// an independent copy. An existing in-memory workflow with the same id
// is replaced.
func (e *Engine) RestoreWorkflow(ctx context.Context, workflowID string) error {
	if e.store == nil {
		return ErrNoStore
	}
	snapshot, err := e.store.LoadSnapshot(ctx, workflowID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Kind: "snapshot", ID: workflowID}
		}
		return err
	}
	w, err := unmarshalWorkflow(snapshot)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.workflows[w.ID] = w
	if _, ok := e.locks[w.ID]; !ok {
		e.locks[w.ID] = &sync.Mutex{}
	}
	e.mu.Unlock()
	return nil
}

// SavedWorkflows lists the workflow ids with a persisted snapshot.
func (e *Engine) SavedWorkflows(ctx context.Context) ([]string, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.ListSnapshots(ctx)
}

// DeleteSnapshot removes a persisted snapshot. The live workflow, if
// any, is unaffected.
func (e *Engine) DeleteSnapshot(ctx context.Context, workflowID string) error {
	if e.store == nil {
		return ErrNoStore
	}
	err := e.store.DeleteSnapshot(ctx, workflowID)
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: "snapshot", ID: workflowID}
	}
	return err
}

// marshalWorkflow round-trips the workflow through JSON into a generic
// map, which keeps the export format identical to the wire format.
func marshalWorkflow(w *Workflow) (map[string]any, error) {
	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode workflow %s: %w", w.ID, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode workflow %s: %w", w.ID, err)
	}
	return out, nil
}

func unmarshalWorkflow(snapshot map[string]any) (*Workflow, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	var w Workflow
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("decode snapshot: missing workflow id")
	}
	return &w, nil
}
