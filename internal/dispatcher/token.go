package dispatcher

import "strconv"

// Token identifies one registered handler.
//
// Tokens have the form prefix + decimal counter ("ID_1", "ID_2", ...). A
// token is never reused, not even after Unregister or Reset.
type Token string

// DefaultTokenPrefix is the prefix used by the default token source.
const DefaultTokenPrefix = "ID_"

// TokenSource issues tokens. Implementations must return a unique,
// never-repeating token per call.
type TokenSource interface {
	Next() Token
}

// Sequence issues prefix + counter tokens, starting at 1.
//
// Thread-safety: Sequence is safe for concurrent use.
type Sequence struct {
	prefix string
	clock  Clock
}

// NewSequence creates a sequence with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns the next token.
func (s *Sequence) Next() Token {
	return Token(s.prefix + strconv.FormatInt(s.clock.Next(), 10))
}


var shared = NewSequence(DefaultTokenPrefix)

// SharedTokens returns the process-wide token sequence.
//
// Dispatchers use a private sequence by default, so two dispatchers both
// start at ID_1. Pass WithTokenSource(SharedTokens()) to every dispatcher
// that must issue tokens unique across the process.
func SharedTokens() TokenSource {
	return shared
}
