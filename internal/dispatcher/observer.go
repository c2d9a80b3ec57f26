package dispatcher

// EventKind names a point in a dispatch cycle.
type EventKind string

const (
	EventCycleStarted     EventKind = "cycle_started"
	EventHandlerStarted   EventKind = "handler_started"
	EventHandlerCompleted EventKind = "handler_completed"
	EventHandlerFailed    EventKind = "handler_failed"
	EventWaitFor          EventKind = "wait_for"
	EventCycleCompleted   EventKind = "cycle_completed"
	EventCycleFailed      EventKind = "cycle_failed"
)

// Event is one step of a dispatch cycle, delivered to observers.
type Event struct {
	Kind EventKind

	// Seq orders events within a dispatcher. Starts at 1.
	Seq int64

	// Cycle numbers dispatch cycles within a dispatcher. Starts at 1.
	Cycle int64

	// Token is the handler concerned, for handler and wait_for events.
	Token Token

	// Waiter is the handler that called WaitFor, for wait_for events.
	Waiter Token

	// Payload is set on cycle_started only.
	Payload Payload

	// Err is set on handler_failed and cycle_failed.
	Err error
}

// Observer receives dispatch events synchronously, on the dispatching
// goroutine. Observers must not call back into the dispatcher.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(e Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}
