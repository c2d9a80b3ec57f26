package middleware

import (
	"slices"

	"github.com/roach88/flux/internal/dispatcher"
)

// Only returns a register filter that runs the handler only for the given
// action types. For other payloads the handler completes without running.
func Only(actionTypes ...string) dispatcher.RegisterFilter {
	allowed := slices.Clone(actionTypes)
	return func(p dispatcher.Payload, next dispatcher.Handler) error {
		t, ok := dispatcher.TypeOf(p)
		if !ok || !slices.Contains(allowed, t) {
			return nil
		}
		return next(p)
	}
}
