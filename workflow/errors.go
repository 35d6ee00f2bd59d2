// Package workflow implements the collaborative workflow orchestration
// engine for the DOB construction assistant: template-based workflows with
// sequential task processing, dependency gating, multi-party approval
// consensus, delegation, cancellation and an auditable per-workflow history.
package workflow

import (
	"errors"
	"fmt"
)

// ErrNoStore is returned by SaveWorkflow and RestoreWorkflow when the
// engine was built without a snapshot store.
var ErrNoStore = errors.New("no snapshot store configured")

// NotFoundError reports an unknown template, workflow, task, approval or
// participant id.
type NotFoundError struct {
	Kind string // "template", "workflow", "task", "approval", "participant"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// InvalidStateError reports an operation attempted from a state that does
// not permit it, e.g. starting an already-running workflow or resolving an
// approval twice.
type InvalidStateError struct {
	Kind   string // "workflow", "task", "approval"
	ID     string
	Status string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in status %q", e.Op, e.Kind, e.ID, e.Status)
}

// HandlerError wraps an error raised by an automatic-task handler. It is
// recorded in history and converted into a task and workflow failure; it is
// never returned to the caller that triggered the dispatch.
type HandlerError struct {
	TaskType string
	Err      error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %q failed: %v", e.TaskType, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var is *InvalidStateError
	return errors.As(err, &is)
}
