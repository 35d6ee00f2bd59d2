package workflow

import (
	"time"
)

// WorkflowStatus is the lifecycle state of a workflow instance.
//
// Transitions: created -> running -> {waiting, completed, failed, cancelled}.
// A waiting workflow returns to running once the blocking dependencies
// clear. completed, failed and cancelled are terminal.
type WorkflowStatus string

const (
	WorkflowCreated   WorkflowStatus = "created"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowWaiting   WorkflowStatus = "waiting"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
	WorkflowCancelled WorkflowStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowCompleted || s == WorkflowFailed || s == WorkflowCancelled
}

// TaskStatus is the lifecycle state of a single task.
type TaskStatus string

const (
	TaskPending         TaskStatus = "pending"
	TaskRunning         TaskStatus = "running"
	TaskWaitingApproval TaskStatus = "waiting_approval"
	TaskWaitingInput    TaskStatus = "waiting_input"
	TaskCompleted       TaskStatus = "completed"
	TaskFailed          TaskStatus = "failed"
	TaskCancelled       TaskStatus = "cancelled"
	TaskSkipped         TaskStatus = "skipped"
)

// Terminal reports whether the task can make no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled || s == TaskSkipped
}

// ApprovalStatus is the state of one approver's verdict.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalDelegated ApprovalStatus = "delegated"
)

// Reserved task types. Any other type string is treated as automatic and
// dispatched through the handler registry; an automatic type with no
// registered handler fails the task.
const (
	// TaskTypeManual marks a task that stays running until a caller
	// explicitly completes it.
	TaskTypeManual = "manual"

	// TaskTypeInput marks a task that waits for external input before it
	// can proceed.
	TaskTypeInput = "input"
)

// Template is an immutable workflow blueprint. Templates are registered
// with a TemplateStore and copied into fresh Workflow instances by
// Engine.CreateWorkflow; the engine never mutates a registered template.
type Template struct {
	ID           string         `json:"template_id" yaml:"template_id"`
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description" yaml:"description"`
	Tasks        []TaskTemplate `json:"tasks" yaml:"tasks"`
	Participants []Participant  `json:"participants" yaml:"participants"`
}

// TaskTemplate is the static description of one task inside a Template.
//
// Dependencies reference other tasks in the same template by name; they are
// translated to generated task ids when a workflow is created. A dependency
// naming no task in the template is carried over verbatim and can never be
// satisfied, which parks the workflow in the waiting state when reached.
type TaskTemplate struct {
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description" yaml:"description"`
	Type         string         `json:"type" yaml:"type"`
	Assignee     string         `json:"assignee,omitempty" yaml:"assignee"`
	Approvers    []string       `json:"approvers,omitempty" yaml:"approvers"`
	Data         map[string]any `json:"data,omitempty" yaml:"data"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies"`
}

// Participant describes one party involved in a workflow, e.g. an
// architect, a plan checker or a site manager.
type Participant struct {
	ID    string         `json:"id" yaml:"id"`
	Name  string         `json:"name" yaml:"name"`
	Role  string         `json:"role" yaml:"role"`
	Email string         `json:"email,omitempty" yaml:"email"`
	Data  map[string]any `json:"data,omitempty" yaml:"data"`
}

// Workflow is one running instance of a template. It exclusively owns its
// task list and audit history. All fields are exported for snapshot
// serialization; callers outside the engine only ever see deep copies.
type Workflow struct {
	ID               string         `json:"id"`
	TemplateID       string         `json:"template_id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	Status           WorkflowStatus `json:"status"`
	Tasks            []*Task        `json:"tasks"`
	Data             map[string]any `json:"data"`
	CurrentTaskIndex int            `json:"current_task_index"`
	Participants     []Participant  `json:"participants"`
	History          []HistoryEvent `json:"history"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// Task is a unit of work scoped to one workflow.
type Task struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Type         string         `json:"type"`
	Status       TaskStatus     `json:"status"`
	Assignee     string         `json:"assignee,omitempty"`
	Approvers    []string       `json:"approvers,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Result       map[string]any `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	Approvals    []*Approval    `json:"approvals,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// Approval is one approver's verdict gating a task. Delegation retires the
// source approval (status delegated) and appends a fresh pending approval;
// entries are never removed.
type Approval struct {
	ID          string         `json:"id"`
	Approver    string         `json:"approver"`
	Status      ApprovalStatus `json:"status"`
	Comment     string         `json:"comment"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// HistoryEvent is one append-only audit record. Events are never mutated
// after being recorded.
type HistoryEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// Event type tags recorded in history and published on the event bus.
const (
	EventWorkflowCreated     = "workflow_created"
	EventWorkflowStarted     = "workflow_started"
	EventWorkflowWaiting     = "workflow_waiting"
	EventWorkflowCompleted   = "workflow_completed"
	EventWorkflowFailed      = "workflow_failed"
	EventWorkflowCancelled   = "workflow_cancelled"
	EventWorkflowImported    = "workflow_imported"
	EventTaskStarted         = "task_started"
	EventTaskCompleted       = "task_completed"
	EventTaskWaitingApproval = "task_waiting_approval"
	EventTaskWaitingInput    = "task_waiting_input"
	EventTaskFailed          = "task_failed"
	EventTaskApproved        = "task_approved"
	EventTaskRejected        = "task_rejected"
	EventApprovalDelegated   = "approval_delegated"
	EventInputProvided       = "input_provided"
	EventParticipantAdded    = "participant_added"
	EventParticipantUpdated  = "participant_updated"
	EventParticipantRemoved  = "participant_removed"
	EventNotifyFailed        = "notification_failed"
)

// cloneData deep-copies a JSON-shaped data mapping. Values outside the
// string/number/bool/nil/map/slice set are copied by reference.
func cloneData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Clone returns a deep copy of the participant.
func (p Participant) Clone() Participant {
	p.Data = cloneData(p.Data)
	return p
}

// Clone returns a deep copy of the approval.
func (a *Approval) Clone() *Approval {
	c := *a
	c.CompletedAt = cloneTimePtr(a.CompletedAt)
	return &c
}

// Clone returns a deep copy of the task, including its approvals.
func (t *Task) Clone() *Task {
	c := *t
	c.Approvers = cloneStrings(t.Approvers)
	c.Dependencies = cloneStrings(t.Dependencies)
	c.Data = cloneData(t.Data)
	c.Result = cloneData(t.Result)
	c.StartedAt = cloneTimePtr(t.StartedAt)
	c.CompletedAt = cloneTimePtr(t.CompletedAt)
	if t.Approvals != nil {
		c.Approvals = make([]*Approval, len(t.Approvals))
		for i, a := range t.Approvals {
			c.Approvals[i] = a.Clone()
		}
	}
	return &c
}

// Clone returns a deep copy of the workflow, its tasks, approvals,
// participants and history.
func (w *Workflow) Clone() *Workflow {
	c := *w
	c.Data = cloneData(w.Data)
	c.CompletedAt = cloneTimePtr(w.CompletedAt)
	if w.Tasks != nil {
		c.Tasks = make([]*Task, len(w.Tasks))
		for i, t := range w.Tasks {
			c.Tasks[i] = t.Clone()
		}
	}
	if w.Participants != nil {
		c.Participants = make([]Participant, len(w.Participants))
		for i, p := range w.Participants {
			c.Participants[i] = p.Clone()
		}
	}
	if w.History != nil {
		c.History = make([]HistoryEvent, len(w.History))
		for i, h := range w.History {
			c.History[i] = h
			c.History[i].Data = cloneData(h.Data)
		}
	}
	return &c
}

// task looks up a task by id within the workflow. The second return value
// is the task's position in the ordered task list, or -1.
func (w *Workflow) task(taskID string) (*Task, int) {
	for i, t := range w.Tasks {
		if t.ID == taskID {
			return t, i
		}
	}
	return nil, -1
}
