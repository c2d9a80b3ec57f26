package dispatcher

import (
	"fmt"
	"log/slog"
)

// Dispatcher broadcasts payloads to registered handlers.
//
// Not safe for concurrent use. See the package documentation.
type Dispatcher struct {
	registry *registry
	session  *session
	tokens   TokenSource
	clock    *Clock
	logger   *slog.Logger

	registerFilters []RegisterFilter
	dispatchFilters []DispatchFilter
	observers       []Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTokenSource sets the source of handler tokens.
// Default: a private Sequence with DefaultTokenPrefix.
func WithTokenSource(src TokenSource) Option {
	return func(d *Dispatcher) {
		if src != nil {
			d.tokens = src
		}
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver adds an observer of dispatch events.
// Observers are called in the order they were added.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

// New creates a Dispatcher with no handlers and no filters.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: newRegistry(),
		session:  newSession(),
		tokens:   NewSequence(DefaultTokenPrefix),
		clock:    NewClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a handler that receives every dispatched payload.
//
// The register filters added so far wrap h; filters added later do not
// affect it. Panics if h is nil.
func (d *Dispatcher) Register(h Handler) Token {
	if h == nil {
		panic("dispatcher: Register called with nil handler")
	}
	t := d.tokens.Next()
	d.registry.add(t, wrapHandler(d.registerFilters, h))
	d.logger.Debug("handler registered", "token", t, "handlers", d.registry.len())
	return t
}

// RegisterAction adds a handler that only runs for payloads whose type field
// equals actionType. For any other payload it completes without running.
func (d *Dispatcher) RegisterAction(actionType string, h Handler) Token {
	if h == nil {
		panic("dispatcher: RegisterAction called with nil handler")
	}
	return d.Register(typeFilter(actionType, h))
}

// Unregister removes the handler for t.
// Returns a KindUnregisteredToken error if t is not registered.
//
// Unregistering during a cycle is allowed: a handler not yet invoked in the
// current cycle will not run.
func (d *Dispatcher) Unregister(t Token) error {
	if !d.registry.remove(t) {
		err := newUnregisteredError("Unregister", t)
		d.logger.Warn("unregister failed", "token", t, "kind", err.Kind)
		return err
	}
	d.logger.Debug("handler unregistered", "token", t, "handlers", d.registry.len())
	return nil
}

// AddRegisterFilter appends a filter to the register chain.
// Only handlers registered afterwards are wrapped by it.
func (d *Dispatcher) AddRegisterFilter(f RegisterFilter) {
	if f == nil {
		panic("dispatcher: AddRegisterFilter called with nil filter")
	}
	d.registerFilters = append(d.registerFilters, f)
}

// AddDispatchFilter builds a filter from factory and appends it to the
// dispatch chain. The factory receives a Redispatcher that bypasses the chain.
func (d *Dispatcher) AddDispatchFilter(factory DispatchFilterFactory) {
	if factory == nil {
		panic("dispatcher: AddDispatchFilter called with nil factory")
	}
	f := factory(bypass{d: d})
	if f == nil {
		panic("dispatcher: dispatch filter factory returned nil")
	}
	d.dispatchFilters = append(d.dispatchFilters, f)
}

// Dispatch runs the dispatch filter chain and then a cycle delivering p to
// every registered handler.
//
// Returns a KindAlreadyDispatching error if a cycle is active, or the first
// failure of the cycle. Returns nil if a filter dropped the dispatch.
func (d *Dispatcher) Dispatch(p Payload) error {
	return wrapDispatch(d.dispatchFilters, d.dispatch)(p)
}

// DispatchAction dispatches ActionPayload(actionType, fields).
func (d *Dispatcher) DispatchAction(actionType string, fields Payload) error {
	return d.Dispatch(ActionPayload(actionType, fields))
}

// IsDispatching reports whether a cycle is active.
func (d *Dispatcher) IsDispatching() bool {
	return d.session.dispatching
}

// Tokens returns the registered tokens in registration order.
func (d *Dispatcher) Tokens() []Token {
	return d.registry.snapshot()
}

// Len returns the number of registered handlers.
func (d *Dispatcher) Len() int {
	return d.registry.len()
}

// Reset removes every handler, all cycle bookkeeping and both filter chains.
// The token source is not rewound: tokens issued before Reset are never
// issued again.
//
// Intended for tests and reinitialisation; do not call it from a handler.
func (d *Dispatcher) Reset() {
	d.registry.clear()
	d.session.reset()
	d.registerFilters = nil
	d.dispatchFilters = nil
	d.logger.Debug("dispatcher reset")
}

// dispatch is the terminal stage of the dispatch chain and the target of
// Redispatcher calls.
func (d *Dispatcher) dispatch(p Payload) (err error) {
	s := d.session
	if s.dispatching {
		e := newAlreadyDispatchingError()
		d.logger.Warn("dispatch rejected", "cycle", s.cycle, "kind", e.Kind)
		return e
	}

	tokens := d.registry.snapshot()
	s.start(tokens, p)
	cycle := s.cycle
	d.logger.Debug("dispatch cycle started", "cycle", cycle, "handlers", len(tokens))
	d.emit(Event{Kind: EventCycleStarted, Cycle: cycle, Payload: p})

	defer func() {
		s.stop()
		if r := recover(); r != nil {
			d.emit(Event{Kind: EventCycleFailed, Cycle: cycle, Err: fmt.Errorf("panic: %v", r)})
			panic(r)
		}
		if err != nil {
			d.logger.Debug("dispatch cycle failed", "cycle", cycle, "error", err)
			d.emit(Event{Kind: EventCycleFailed, Cycle: cycle, Err: err})
			return
		}
		d.logger.Debug("dispatch cycle completed", "cycle", cycle)
		d.emit(Event{Kind: EventCycleCompleted, Cycle: cycle})
	}()

	for _, t := range tokens {
		if s.pending[t] || !d.registry.has(t) {
			continue
		}
		if err := d.invoke(t); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) emit(e Event) {
	if len(d.observers) == 0 {
		return
	}
	e.Seq = d.clock.Next()
	for _, o := range d.observers {
		o.Observe(e)
	}
}
