package middleware

import (
	"log/slog"
	"time"

	"github.com/roach88/flux/internal/dispatcher"
)

// Logging returns a dispatch filter that logs each dispatch and its outcome.
// Dropped dispatches are logged as completed.
func Logging(logger *slog.Logger) dispatcher.DispatchFilterFactory {
	return func(dispatcher.Redispatcher) dispatcher.DispatchFilter {
		return func(p dispatcher.Payload, next dispatcher.DispatchFunc) error {
			action := actionOf(p)
			logger.Info("dispatch started", slog.String("action", action))

			start := time.Now()
			err := next(p)
			elapsed := time.Since(start)

			if err != nil {
				logger.Error("dispatch failed",
					slog.String("action", action),
					slog.Duration("elapsed", elapsed),
					slog.String("kind", string(dispatcher.KindOf(err))),
					slog.String("error", err.Error()),
				)
			} else {
				logger.Info("dispatch completed",
					slog.String("action", action),
					slog.Duration("elapsed", elapsed),
				)
			}
			return err
		}
	}
}

func actionOf(p dispatcher.Payload) string {
	if t, ok := dispatcher.TypeOf(p); ok {
		return t
	}
	return "-"
}
