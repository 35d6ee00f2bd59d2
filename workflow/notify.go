package workflow

import "context"

// Notifier delivers best-effort notifications to workflow participants.
// The engine swallows notifier errors: a failed delivery publishes a
// notification_failed event but never fails the triggering operation.
type Notifier interface {
	// NotifyAssignee tells the assignee that a task needs their action
	// (a manual task started or an input task is waiting).
	NotifyAssignee(ctx context.Context, workflowID, taskID, assignee string) error

	// NotifyApprover tells an approver that a pending approval awaits
	// their verdict.
	NotifyApprover(ctx context.Context, workflowID, taskID, approvalID, approver string) error
}

// NoopNotifier discards all notifications. The engine default.
type NoopNotifier struct{}

func (NoopNotifier) NotifyAssignee(context.Context, string, string, string) error { return nil }

func (NoopNotifier) NotifyApprover(context.Context, string, string, string, string) error {
	return nil
}
