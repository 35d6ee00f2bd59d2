package emit

// Emitter receives events from the workflow engine or from a Bus.
//
// Implementations should be:
//   - Non-blocking: engine operations are short synchronous mutations and
//     run with the per-workflow lock held
//   - Thread-safe: events for different workflows may arrive concurrently
//   - Resilient: a sink failure must never reach the engine
//
// Emit must not panic; the Bus contains a recover as a last line of
// defense, but a panicking sink is considered broken.
type Emitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a plain function to the Emitter interface.
type EmitterFunc func(Event)

// Emit calls f(event).
func (f EmitterFunc) Emit(event Event) { f(event) }
