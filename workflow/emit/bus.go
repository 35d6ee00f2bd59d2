package emit

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Wildcard subscribes a sink to every event type.
const Wildcard = "*"

// Bus is an in-process publish/subscribe hub keyed by event-type string.
// It decouples the workflow engine from notification and integration
// collaborators: the engine publishes, sinks subscribe.
//
// Failure isolation: a sink that panics is recovered and logged to the
// bus's error writer; it never blocks the engine or the other sinks for
// the same event.
//
// Bus itself implements Emitter, so it can be handed directly to the
// engine and nested inside other buses.
type Bus struct {
	mu     sync.RWMutex
	sinks  map[string][]Emitter
	errLog io.Writer
}

// NewBus creates an empty bus. Sink panics are reported to errLog; pass
// nil to use os.Stderr.
func NewBus(errLog io.Writer) *Bus {
	if errLog == nil {
		errLog = os.Stderr
	}
	return &Bus{
		sinks:  make(map[string][]Emitter),
		errLog: errLog,
	}
}

// Subscribe registers a sink for one event type. Use Wildcard to receive
// every event. A sink may be subscribed to multiple types; it then
// receives one delivery per matching subscription.
func (b *Bus) Subscribe(eventType string, sink Emitter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks[eventType] = append(b.sinks[eventType], sink)
}

// SubscribeFunc registers a plain function as a sink.
func (b *Bus) SubscribeFunc(eventType string, fn func(Event)) {
	b.Subscribe(eventType, EmitterFunc(fn))
}

// Emit delivers the event synchronously to every sink subscribed to its
// type, then to every wildcard sink. Delivery order within a subscription
// list follows registration order.
func (b *Bus) Emit(event Event) {
	b.mu.RLock()
	matched := b.sinks[event.Type]
	wild := b.sinks[Wildcard]
	b.mu.RUnlock()

	for _, s := range matched {
		b.deliver(s, event)
	}
	if event.Type == Wildcard {
		return
	}
	for _, s := range wild {
		b.deliver(s, event)
	}
}

// deliver invokes one sink, containing any panic.
func (b *Bus) deliver(sink Emitter, event Event) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(b.errLog, "emit: sink panic on %q (workflow %s): %v\n",
				event.Type, event.WorkflowID, r)
		}
	}()
	sink.Emit(event)
}
