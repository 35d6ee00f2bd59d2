// Package emit provides the engine's event bus and pluggable event sinks.
package emit

import "time"

// Event is one observability/integration event published by the workflow
// engine. Every state transition in a workflow produces an event; the bus
// fans them out to subscribed sinks (logs, traces, integrations).
type Event struct {
	// Type is the event tag, e.g. "task_completed" or "workflow_failed".
	// Subscriptions are keyed by this string.
	Type string

	// WorkflowID identifies the workflow that produced the event.
	WorkflowID string

	// TaskID identifies the task involved, when the event is task-scoped.
	// Empty for workflow-level events.
	TaskID string

	// Data carries the structured payload, mirroring the matching history
	// entry. Values are JSON-shaped (string/number/bool/nil/map/slice).
	Data map[string]any

	// Time is when the event was published.
	Time time.Time
}
