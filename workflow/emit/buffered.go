package emit

import "sync"

// BufferedEmitter stores every event in memory, organized by workflow id,
// and exposes query helpers. Intended for tests, debugging and small
// dashboards; it grows without bound, so long-lived production processes
// should prefer a persistent sink.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // workflowID -> events in arrival order
}

// NewBufferedEmitter creates an empty buffered emitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit appends the event to the buffer for its workflow.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.WorkflowID] = append(b.events[event.WorkflowID], event)
}

// Events returns a copy of all events recorded for the workflow, in
// arrival order. Returns an empty slice when nothing was recorded.
func (b *BufferedEmitter) Events(workflowID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.events[workflowID]))
	copy(out, b.events[workflowID])
	return out
}

// EventsByType returns a copy of the workflow's events matching the given
// event type, in arrival order.
func (b *BufferedEmitter) EventsByType(workflowID, eventType string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, 0)
	for _, ev := range b.events[workflowID] {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// Clear drops all buffered events for one workflow.
func (b *BufferedEmitter) Clear(workflowID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, workflowID)
}

// ClearAll drops every buffered event.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[string][]Event)
}
