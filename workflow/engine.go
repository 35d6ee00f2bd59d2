package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kevin180791/dob-mvp-enhanced/workflow/emit"
	"github.com/Kevin180791/dob-mvp-enhanced/workflow/store"
)

// Handler performs an automatic task. It is looked up by the task's type
// string and invoked synchronously with the task's data mapping; the
// returned result is stored on the completed task. An error fails the task
// and, cascading, the workflow.
//
// Handlers must not block indefinitely: they run while the workflow's lock
// is held, so a stuck handler stalls every operation on that workflow.
type Handler func(ctx context.Context, workflowID, taskID string, data map[string]any) (map[string]any, error)

// Engine orchestrates collaborative workflows.
//
// The Engine is the runtime that:
//   - Materializes workflows from registered templates
//   - Processes tasks sequentially along the workflow's cursor
//   - Gates tasks on dependencies and multi-party approval consensus
//   - Dispatches automatic tasks to registered handlers
//   - Records every transition in the per-workflow history
//   - Publishes every transition on the event bus
//
// Concurrency: the engine serializes access per workflow id. Every
// operation acquires the target workflow's lock for its full duration, so
// callers may invoke the engine from multiple goroutines; operations on
// the same workflow are strictly ordered, which is what makes the history
// an authoritative audit log.
//
// Cancellation is cooperative: an in-flight handler call is never
// interrupted, cancelling only prevents future advancement.
//
// Template contents are not validated on registration; a workflow whose
// current task has an unsatisfiable dependency simply parks in the
// waiting state.
type Engine struct {
	mu        sync.RWMutex
	templates *TemplateStore
	workflows map[string]*Workflow
	locks     map[string]*sync.Mutex
	handlers  map[string]Handler

	emitter  emit.Emitter
	notifier Notifier
	metrics  *Metrics
	store    store.Store
	now      func() time.Time
}

// New creates an engine using the given template store and event sink.
// Pass a *emit.Bus as the emitter to fan events out to subscribers; pass
// nil to drop events.
func New(templates *TemplateStore, emitter emit.Emitter, opts ...Option) *Engine {
	e := &Engine{
		templates: templates,
		workflows: make(map[string]*Workflow),
		locks:     make(map[string]*sync.Mutex),
		handlers:  make(map[string]Handler),
		emitter:   emitter,
		notifier:  NoopNotifier{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterHandler registers fn for tasks of the given type. Registering
// the same type again replaces the previous handler.
func (e *Engine) RegisterHandler(taskType string, fn Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[taskType] = fn
}

// Templates returns the engine's template store.
func (e *Engine) Templates() *TemplateStore { return e.templates }

// CreateWorkflow materializes a new workflow from the template. The
// template's task list is deep-copied into fresh task and approval
// instances with generated ids; template dependencies given as task names
// are translated to the generated ids. The workflow starts in the created
// status and must be started explicitly.
//
// Returns the generated workflow id.
func (e *Engine) CreateWorkflow(templateID string, data map[string]any) (string, error) {
	tpl, err := e.templates.Get(templateID)
	if err != nil {
		return "", err
	}

	now := e.now()
	w := &Workflow{
		ID:          uuid.NewString(),
		TemplateID:  templateID,
		Name:        tpl.Name,
		Description: tpl.Description,
		Status:      WorkflowCreated,
		Data:        cloneData(data),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, p := range tpl.Participants {
		w.Participants = append(w.Participants, p.Clone())
	}

	// First pass: materialize tasks and remember name -> id for the
	// dependency translation below.
	idByName := make(map[string]string, len(tpl.Tasks))
	for _, tt := range tpl.Tasks {
		t := &Task{
			ID:           uuid.NewString(),
			Name:         tt.Name,
			Description:  tt.Description,
			Type:         tt.Type,
			Status:       TaskPending,
			Assignee:     tt.Assignee,
			Approvers:    cloneStrings(tt.Approvers),
			Data:         cloneData(tt.Data),
			Dependencies: cloneStrings(tt.Dependencies),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if t.Data == nil {
			t.Data = make(map[string]any)
		}
		for _, approver := range tt.Approvers {
			t.Approvals = append(t.Approvals, &Approval{
				ID:        uuid.NewString(),
				Approver:  approver,
				Status:    ApprovalPending,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		idByName[tt.Name] = t.ID
		w.Tasks = append(w.Tasks, t)
	}

	// Second pass: translate dependency names to task ids. Names that
	// match no task are kept verbatim and treated as missing at gate time.
	for _, t := range w.Tasks {
		for i, dep := range t.Dependencies {
			if id, ok := idByName[dep]; ok {
				t.Dependencies[i] = id
			}
		}
	}

	lock := &sync.Mutex{}
	e.mu.Lock()
	e.workflows[w.ID] = w
	e.locks[w.ID] = lock
	e.mu.Unlock()

	lock.Lock()
	e.record(w, "", EventWorkflowCreated, map[string]any{
		"template_id":   templateID,
		"workflow_name": w.Name,
	})
	lock.Unlock()
	e.metrics.workflowCreated()
	return w.ID, nil
}

// StartWorkflow begins sequential task processing. Only a workflow in the
// created status may be started; anything else returns an
// InvalidStateError.
func (e *Engine) StartWorkflow(ctx context.Context, workflowID string) error {
	w, lock, err := e.lookup(workflowID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	if w.Status != WorkflowCreated {
		return &InvalidStateError{Kind: "workflow", ID: w.ID, Status: string(w.Status), Op: "start"}
	}

	w.Status = WorkflowRunning
	w.UpdatedAt = e.now()
	e.record(w, "", EventWorkflowStarted, map[string]any{"workflow_name": w.Name})

	e.advance(ctx, w)
	return nil
}

// CancelWorkflow aborts a non-terminal workflow. Every task that has not
// yet reached a terminal status becomes cancelled; completed tasks are not
// rolled back. Cancelling a terminal workflow returns an
// InvalidStateError.
func (e *Engine) CancelWorkflow(workflowID, reason string) error {
	w, lock, err := e.lookup(workflowID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	if w.Status.Terminal() {
		return &InvalidStateError{Kind: "workflow", ID: w.ID, Status: string(w.Status), Op: "cancel"}
	}

	now := e.now()
	w.Status = WorkflowCancelled
	w.UpdatedAt = now
	for _, t := range w.Tasks {
		if !t.Status.Terminal() {
			t.Status = TaskCancelled
			t.UpdatedAt = now
			e.metrics.taskFinished(t, now)
		}
	}

	e.record(w, "", EventWorkflowCancelled, map[string]any{
		"workflow_name": w.Name,
		"reason":        reason,
	})
	e.metrics.workflowFinished(WorkflowCancelled)
	return nil
}

// GetWorkflow returns a deep copy of the workflow.
func (e *Engine) GetWorkflow(workflowID string) (*Workflow, error) {
	w, lock, err := e.lookup(workflowID)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()
	return w.Clone(), nil
}

// Filter selects workflows in ListWorkflows. Zero fields match anything.
type Filter struct {
	Status     WorkflowStatus
	TemplateID string
}

// ListWorkflows returns deep copies of every workflow matching the filter.
func (e *Engine) ListWorkflows(f Filter) []*Workflow {
	e.mu.RLock()
	ids := make([]string, 0, len(e.workflows))
	for id := range e.workflows {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	out := make([]*Workflow, 0, len(ids))
	for _, id := range ids {
		w, lock, err := e.lookup(id)
		if err != nil {
			continue // removed between snapshot and lookup
		}
		lock.Lock()
		if (f.Status == "" || w.Status == f.Status) &&
			(f.TemplateID == "" || w.TemplateID == f.TemplateID) {
			out = append(out, w.Clone())
		}
		lock.Unlock()
	}
	return out
}

// GetTask returns a deep copy of one task.
func (e *Engine) GetTask(workflowID, taskID string) (*Task, error) {
	w, lock, err := e.lookup(workflowID)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	t, _ := w.task(taskID)
	if t == nil {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}
	return t.Clone(), nil
}

// Participants returns a deep copy of the workflow's participant list.
func (e *Engine) Participants(workflowID string) ([]Participant, error) {
	w, lock, err := e.lookup(workflowID)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	out := make([]Participant, len(w.Participants))
	for i, p := range w.Participants {
		out[i] = p.Clone()
	}
	return out, nil
}

// AddParticipant adds a participant to the workflow, or updates the
// existing entry with the same id.
func (e *Engine) AddParticipant(workflowID string, p Participant) error {
	w, lock, err := e.lookup(workflowID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	w.UpdatedAt = e.now()
	for i := range w.Participants {
		if w.Participants[i].ID == p.ID {
			w.Participants[i] = p.Clone()
			e.record(w, "", EventParticipantUpdated, map[string]any{
				"workflow_name":    w.Name,
				"participant_id":   p.ID,
				"participant_name": p.Name,
			})
			return nil
		}
	}

	w.Participants = append(w.Participants, p.Clone())
	e.record(w, "", EventParticipantAdded, map[string]any{
		"workflow_name":    w.Name,
		"participant_id":   p.ID,
		"participant_name": p.Name,
	})
	return nil
}

// RemoveParticipant removes the participant with the given id.
func (e *Engine) RemoveParticipant(workflowID, participantID string) error {
	w, lock, err := e.lookup(workflowID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	for i, p := range w.Participants {
		if p.ID == participantID {
			w.Participants = append(w.Participants[:i], w.Participants[i+1:]...)
			w.UpdatedAt = e.now()
			e.record(w, "", EventParticipantRemoved, map[string]any{
				"workflow_name":    w.Name,
				"participant_id":   participantID,
				"participant_name": p.Name,
			})
			return nil
		}
	}
	return &NotFoundError{Kind: "participant", ID: participantID}
}

// lookup resolves a workflow and its lock. Callers lock the returned
// mutex before touching the workflow.
func (e *Engine) lookup(workflowID string) (*Workflow, *sync.Mutex, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	w, ok := e.workflows[workflowID]
	if !ok {
		return nil, nil, &NotFoundError{Kind: "workflow", ID: workflowID}
	}
	return w, e.locks[workflowID], nil
}

// notifyAssignee delivers a best-effort assignee notification.
func (e *Engine) notifyAssignee(ctx context.Context, w *Workflow, t *Task) {
	if t.Assignee == "" {
		return
	}
	if err := e.notifier.NotifyAssignee(ctx, w.ID, t.ID, t.Assignee); err != nil {
		e.publish(w, t.ID, EventNotifyFailed, map[string]any{
			"role":    "assignee",
			"target":  t.Assignee,
			"reason":  err.Error(),
			"task_id": t.ID,
		})
	}
}

// notifyApprover delivers a best-effort approver notification.
func (e *Engine) notifyApprover(ctx context.Context, w *Workflow, t *Task, a *Approval) {
	if err := e.notifier.NotifyApprover(ctx, w.ID, t.ID, a.ID, a.Approver); err != nil {
		e.publish(w, t.ID, EventNotifyFailed, map[string]any{
			"role":        "approver",
			"target":      a.Approver,
			"reason":      err.Error(),
			"approval_id": a.ID,
		})
	}
}
