package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kevin180791/dob-mvp-enhanced/workflow/emit"
)

// record appends an audit event to the workflow's history and publishes
// the same payload on the event bus. The caller holds the workflow's lock.
func (e *Engine) record(w *Workflow, taskID, eventType string, data map[string]any) {
	now := e.now()
	if data == nil {
		data = make(map[string]any)
	}
	data["workflow_id"] = w.ID
	if taskID != "" {
		data["task_id"] = taskID
	}

	w.History = append(w.History, HistoryEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      cloneData(data),
		Timestamp: now,
	})
	e.publishAt(w, taskID, eventType, data, now)
}

// publish emits an event on the bus without touching the history. Used
// for operational signals, such as notification failures, that are not
// part of the workflow's audit trail.
func (e *Engine) publish(w *Workflow, taskID, eventType string, data map[string]any) {
	e.publishAt(w, taskID, eventType, data, e.now())
}

func (e *Engine) publishAt(w *Workflow, taskID, eventType string, data map[string]any, at time.Time) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(emit.Event{
		Type:       eventType,
		WorkflowID: w.ID,
		TaskID:     taskID,
		Data:       cloneData(data),
		Time:       at,
	})
}

// History returns a copy of the workflow's append-only event log, oldest
// first.
func (e *Engine) History(workflowID string) ([]HistoryEvent, error) {
	w, lock, err := e.lookup(workflowID)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	out := make([]HistoryEvent, len(w.History))
	for i, ev := range w.History {
		out[i] = ev
		out[i].Data = cloneData(ev.Data)
	}
	return out, nil
}
