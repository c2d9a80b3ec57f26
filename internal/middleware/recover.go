package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/roach88/flux/internal/dispatcher"
)

// Recover returns a register filter that recovers from handler panics.
// A panic becomes the handler's error and is logged with a stack trace.
func Recover(logger *slog.Logger) dispatcher.RegisterFilter {
	return func(p dispatcher.Payload, next dispatcher.Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("handler panicked",
					slog.String("action", actionOf(p)),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic in handler: %v", r)
			}
		}()
		return next(p)
	}
}
