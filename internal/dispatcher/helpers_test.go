package dispatcher

import (
	"io"
	"log/slog"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(opts ...Option) *Dispatcher {
	return New(append([]Option{WithLogger(quietLogger())}, opts...)...)
}

// order records handler names in call order.
type order struct {
	names []string
}

func (o *order) add(name string) {
	o.names = append(o.names, name)
}

// eventLog collects observer events.
type eventLog struct {
	events []Event
}

func (l *eventLog) Observe(e Event) {
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() []EventKind {
	out := make([]EventKind, len(l.events))
	for i, e := range l.events {
		out[i] = e.Kind
	}
	return out
}
