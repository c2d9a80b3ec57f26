package dispatcher

// session is the bookkeeping of one dispatcher's dispatch cycles.
//
// pending and handled are only meaningful while dispatching is true. After a
// failed cycle they may hold stale entries; the next cycle reinitialises them.
type session struct {
	pending     map[Token]bool
	handled     map[Token]bool
	payload     Payload
	dispatching bool

	// running is the stack of handlers currently executing, innermost last.
	running []Token

	// fault is the first failure of the current cycle.
	fault error

	cycle int64
}

func newSession() *session {
	return &session{
		pending: make(map[Token]bool),
		handled: make(map[Token]bool),
	}
}

// start begins a cycle for the given tokens and payload.
func (s *session) start(tokens []Token, p Payload) {
	clear(s.pending)
	clear(s.handled)
	for _, t := range tokens {
		s.pending[t] = false
		s.handled[t] = false
	}
	s.payload = p
	s.dispatching = true
	s.running = s.running[:0]
	s.fault = nil
	s.cycle++
}

// stop releases the cycle. Safe to call on any exit path.
func (s *session) stop() {
	s.dispatching = false
	s.payload = nil
	s.running = s.running[:0]
}

// current returns the innermost running handler, or "" if none.
func (s *session) current() Token {
	if len(s.running) == 0 {
		return ""
	}
	return s.running[len(s.running)-1]
}

// pathTo returns the running chain from t to the innermost handler, closed
// with t again. Returns nil if t is not running.
func (s *session) pathTo(t Token) []Token {
	for i, r := range s.running {
		if r == t {
			path := make([]Token, 0, len(s.running)-i+1)
			path = append(path, s.running[i:]...)
			return append(path, t)
		}
	}
	return nil
}

// reset forgets every token's bookkeeping. A running cycle keeps its
// payload and dispatching flag until it exits.
func (s *session) reset() {
	clear(s.pending)
	clear(s.handled)
}

// fail records err as the cycle's fault unless one is already set.
func (s *session) fail(err error) {
	if s.fault == nil {
		s.fault = err
	}
}
