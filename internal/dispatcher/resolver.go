package dispatcher

// WaitFor runs the handlers for tokens before the caller continues.
//
// Must be called from a handler during a cycle. Tokens are processed in
// order: a handler already run this cycle is skipped; one not yet run is
// invoked now, on the caller's stack. Waiting on a handler that is still
// running (including the caller itself) is a circular dependency.
//
// Errors:
//   - KindNotDispatching outside a cycle
//   - KindUnregisteredToken for an unknown token
//   - KindCircularDependency for a handler that is still running
//   - any error returned by an invoked handler
//
// Any of these ends the cycle. If the caller ignores the error, Dispatch
// still returns it once the caller finishes.
func (d *Dispatcher) WaitFor(tokens ...Token) error {
	s := d.session
	if !s.dispatching {
		err := newNotDispatchingError()
		d.logger.Warn("wait rejected", "kind", err.Kind)
		return err
	}
	if s.fault != nil {
		return s.fault
	}

	waiter := s.current()
	for _, t := range tokens {
		if !d.registry.has(t) {
			return d.violate(newUnregisteredError("WaitFor", t))
		}
		if s.pending[t] {
			if !s.handled[t] {
				return d.violate(newCircularError(t, s.pathTo(t)))
			}
			d.emit(Event{Kind: EventWaitFor, Cycle: s.cycle, Token: t, Waiter: waiter})
			continue
		}
		d.emit(Event{Kind: EventWaitFor, Cycle: s.cycle, Token: t, Waiter: waiter})
		if err := d.invoke(t); err != nil {
			return err
		}
	}
	return nil
}

// invoke runs the handler for t, which must be registered and not pending.
func (d *Dispatcher) invoke(t Token) error {
	s := d.session
	h, _ := d.registry.lookup(t)

	s.pending[t] = true
	s.running = append(s.running, t)
	d.emit(Event{Kind: EventHandlerStarted, Cycle: s.cycle, Token: t})

	err := h(s.payload)

	s.running = s.running[:len(s.running)-1]
	if err == nil {
		err = s.fault
	}
	if err != nil {
		s.fail(err)
		d.emit(Event{Kind: EventHandlerFailed, Cycle: s.cycle, Token: t, Err: err})
		return err
	}
	s.handled[t] = true
	d.emit(Event{Kind: EventHandlerCompleted, Cycle: s.cycle, Token: t})
	return nil
}

// violate records an invariant violation as the cycle's fault.
func (d *Dispatcher) violate(err *Error) error {
	d.session.fail(err)
	d.logger.Warn("wait failed", "cycle", d.session.cycle, "token", err.Token, "kind", err.Kind)
	return err
}
