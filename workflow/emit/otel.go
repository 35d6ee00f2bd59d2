package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns workflow events into OpenTelemetry spans.
//
// Each event becomes an immediately-ended span:
//   - Span name: event.Type (e.g. "task_completed")
//   - Attributes: workflow.id, task.id, plus every scalar payload field
//   - Status: error when the payload carries a "reason" on a *_failed event
//
// Spans represent points in time, not durations; duration analysis belongs
// to the Prometheus metrics in the workflow package.
//
// Usage:
//
//	tracer := otel.Tracer("dob-workflow")
//	bus.Subscribe(emit.Wildcard, emit.NewOTelEmitter(tracer))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an emitter backed by the given tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit creates and ends one span for the event.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Type,
		trace.WithTimestamp(event.Time))
	defer span.End()

	span.SetAttributes(attribute.String("workflow.id", event.WorkflowID))
	if event.TaskID != "" {
		span.SetAttributes(attribute.String("task.id", event.TaskID))
	}
	for k, v := range event.Data {
		span.SetAttributes(payloadAttribute(k, v))
	}

	if reason, ok := event.Data["reason"].(string); ok && isFailureEvent(event.Type) {
		span.SetStatus(codes.Error, reason)
		span.RecordError(fmt.Errorf("%s", reason))
	}
}

func isFailureEvent(eventType string) bool {
	return eventType == "task_failed" || eventType == "workflow_failed"
}

// payloadAttribute converts a payload value to a span attribute, falling
// back to fmt formatting for non-scalar values.
func payloadAttribute(key string, v any) attribute.KeyValue {
	switch t := v.(type) {
	case string:
		return attribute.String(key, t)
	case bool:
		return attribute.Bool(key, t)
	case int:
		return attribute.Int(key, t)
	case int64:
		return attribute.Int64(key, t)
	case float64:
		return attribute.Float64(key, t)
	default:
		return attribute.String(key, fmt.Sprintf("%v", t))
	}
}
