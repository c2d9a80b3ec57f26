package dispatcher

// RegisterFilter wraps a handler at registration time.
//
// A filter continues by calling next(p). Returning without calling next skips
// the handler for this payload; the handler still counts as handled. An error
// returned by the filter is the handler's error.
type RegisterFilter func(p Payload, next Handler) error

// DispatchFunc continues a dispatch filter chain.
type DispatchFunc func(p Payload) error

// DispatchFilter wraps every Dispatch call.
//
// A filter may continue with next(p) (optionally passing a different
// payload), re-dispatch through its Redispatcher, or return without calling
// either to drop the dispatch. Dropping is not an error. A payload passed to
// next is what every inner filter and the dispatch cycle observe.
type DispatchFilter func(p Payload, next DispatchFunc) error

// DispatchFilterFactory builds a DispatchFilter bound to a Redispatcher.
// Called once, when the filter is added.
type DispatchFilterFactory func(r Redispatcher) DispatchFilter

// Redispatcher starts a dispatch cycle without running the dispatch filter
// chain. Only the payload curation of the entry points is applied.
type Redispatcher interface {
	Dispatch(p Payload) error
	DispatchAction(actionType string, fields Payload) error
}

// bypass is the Redispatcher handed to dispatch filter factories.
type bypass struct {
	d *Dispatcher
}

func (b bypass) Dispatch(p Payload) error {
	return b.d.dispatch(p)
}

func (b bypass) DispatchAction(actionType string, fields Payload) error {
	return b.d.dispatch(ActionPayload(actionType, fields))
}

// wrapHandler composes filters around h, right to left, so filters[0] is the
// outermost wrapper.
func wrapHandler(filters []RegisterFilter, h Handler) Handler {
	for i := len(filters) - 1; i >= 0; i-- {
		f, next := filters[i], h
		h = func(p Payload) error {
			return f(p, next)
		}
	}
	return h
}

// wrapDispatch composes filters around terminal, right to left.
func wrapDispatch(filters []DispatchFilter, terminal DispatchFunc) DispatchFunc {
	fn := terminal
	for i := len(filters) - 1; i >= 0; i-- {
		f, next := filters[i], fn
		fn = func(p Payload) error {
			return f(p, next)
		}
	}
	return fn
}
