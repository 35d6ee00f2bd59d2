package workflow

import (
	"time"

	"github.com/Kevin180791/dob-mvp-enhanced/workflow/store"
)

// Option configures an Engine at construction time.
//
// Example:
//
//	engine := workflow.New(templates, bus,
//	    workflow.WithNotifier(mailer),
//	    workflow.WithMetrics(metrics),
//	    workflow.WithStore(snapshots),
//	)
type Option func(*Engine)

// WithNotifier installs the participant notification collaborator.
// Without it, notifications are silently dropped.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithMetrics installs Prometheus instrumentation. Without it, no metrics
// are collected.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithStore installs a snapshot store, enabling SaveWorkflow and
// RestoreWorkflow.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithClock replaces the engine's time source. Tests use this to make
// timestamps deterministic.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
