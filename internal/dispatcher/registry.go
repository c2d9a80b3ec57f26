package dispatcher

// registry maps tokens to handlers and remembers registration order.
type registry struct {
	handlers map[Token]Handler
	order    []Token
}

func newRegistry() *registry {
	return &registry{handlers: make(map[Token]Handler)}
}

func (r *registry) add(t Token, h Handler) {
	r.handlers[t] = h
	r.order = append(r.order, t)
}

// remove deletes t. Returns false if t was not registered.
func (r *registry) remove(t Token) bool {
	if _, ok := r.handlers[t]; !ok {
		return false
	}
	delete(r.handlers, t)
	for i, o := range r.order {
		if o == t {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *registry) lookup(t Token) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

func (r *registry) has(t Token) bool {
	_, ok := r.handlers[t]
	return ok
}

// snapshot returns the registered tokens in registration order.
// The slice is a copy; later registry changes do not affect it.
func (r *registry) snapshot() []Token {
	out := make([]Token, len(r.order))
	copy(out, r.order)
	return out
}

func (r *registry) len() int {
	return len(r.handlers)
}

func (r *registry) clear() {
	clear(r.handlers)
	r.order = nil
}
