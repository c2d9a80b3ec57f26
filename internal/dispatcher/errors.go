package dispatcher

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the invariant a dispatcher error reports.
type Kind string

const (
	// KindUnregisteredToken: Unregister or WaitFor referenced an unmapped token.
	KindUnregisteredToken Kind = "UnregisteredToken"

	// KindNotDispatching: WaitFor was called outside a dispatch cycle.
	KindNotDispatching Kind = "NotDispatching"

	// KindCircularDependency: WaitFor demanded a handler that is still running.
	KindCircularDependency Kind = "CircularDependency"

	// KindAlreadyDispatching: Dispatch was called during a dispatch cycle.
	KindAlreadyDispatching Kind = "AlreadyDispatching"
)

// Error is an invariant violation raised by the dispatcher.
//
// Errors returned by handlers are never wrapped in Error; they propagate to
// the Dispatch caller unmodified.
type Error struct {
	// Kind categorizes the violation.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Token is the token the violation concerns, if any.
	Token Token

	// Path is the chain of running handlers for circular dependencies,
	// starting and ending with Token.
	Path []Token
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// KindOf returns the Kind of a dispatcher error, or "" for any other error.
// Uses errors.As so wrapped errors are matched.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a dispatcher error of the given kind.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// IsUnregisteredToken reports whether err is a KindUnregisteredToken error.
func IsUnregisteredToken(err error) bool {
	return IsKind(err, KindUnregisteredToken)
}

// IsNotDispatching reports whether err is a KindNotDispatching error.
func IsNotDispatching(err error) bool {
	return IsKind(err, KindNotDispatching)
}

// IsCircular reports whether err is a KindCircularDependency error.
func IsCircular(err error) bool {
	return IsKind(err, KindCircularDependency)
}

// IsAlreadyDispatching reports whether err is a KindAlreadyDispatching error.
func IsAlreadyDispatching(err error) bool {
	return IsKind(err, KindAlreadyDispatching)
}

func newUnregisteredError(op string, t Token) *Error {
	return &Error{
		Kind:    KindUnregisteredToken,
		Message: fmt.Sprintf("%s: %q does not map to a registered handler", op, t),
		Token:   t,
	}
}

func newNotDispatchingError() *Error {
	return &Error{
		Kind:    KindNotDispatching,
		Message: "WaitFor: must be invoked while dispatching",
	}
}

func newCircularError(t Token, path []Token) *Error {
	msg := fmt.Sprintf("WaitFor: circular dependency detected while waiting for %q", t)
	if len(path) > 0 {
		parts := make([]string, len(path))
		for i, p := range path {
			parts[i] = string(p)
		}
		msg += " (" + strings.Join(parts, " -> ") + ")"
	}
	return &Error{
		Kind:    KindCircularDependency,
		Message: msg,
		Token:   t,
		Path:    path,
	}
}

func newAlreadyDispatchingError() *Error {
	return &Error{
		Kind:    KindAlreadyDispatching,
		Message: "Dispatch: cannot dispatch in the middle of a dispatch",
	}
}
