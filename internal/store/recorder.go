package store

import (
	"context"
	"log/slog"

	"github.com/roach88/flux/internal/dispatcher"
	"github.com/roach88/flux/internal/value"
)

// Recorder journals dispatcher events into a run.
//
// Install it with dispatcher.WithObserver. Observer callbacks cannot return
// errors, so the first write failure is kept in Err and later events are
// dropped.
type Recorder struct {
	ctx    context.Context
	store  *Store
	runID  string
	logger *slog.Logger
	err    error
}

// NewRecorder creates a recorder writing into an existing run.
// A nil logger means slog.Default().
func NewRecorder(ctx context.Context, s *Store, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{ctx: ctx, store: s, runID: runID, logger: logger}
}

// RunID returns the run being recorded.
func (r *Recorder) RunID() string {
	return r.runID
}

// Err returns the first write error, or nil.
func (r *Recorder) Err() error {
	return r.err
}

// Observe implements dispatcher.Observer.
func (r *Recorder) Observe(e dispatcher.Event) {
	if r.err != nil {
		return
	}
	if err := r.write(e); err != nil {
		r.err = err
		r.logger.Warn("journal write failed",
			slog.String("run", r.runID),
			slog.Int64("cycle", e.Cycle),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Recorder) write(e dispatcher.Event) error {
	switch e.Kind {
	case dispatcher.EventCycleStarted:
		hash, err := value.PayloadHash(e.Payload)
		if err != nil {
			return err
		}
		action, _ := dispatcher.TypeOf(e.Payload)
		return r.store.WriteCycleStart(r.ctx, Cycle{
			RunID:       r.runID,
			Cycle:       e.Cycle,
			ActionType:  action,
			PayloadHash: hash,
			StartedSeq:  e.Seq,
		})

	case dispatcher.EventCycleCompleted, dispatcher.EventCycleFailed:
		c := Cycle{
			RunID:       r.runID,
			Cycle:       e.Cycle,
			Status:      StatusCompleted,
			FinishedSeq: e.Seq,
		}
		if e.Kind == dispatcher.EventCycleFailed {
			c.Status = StatusFailed
			c.ErrorKind, c.ErrorMessage = describe(e.Err)
		}
		return r.store.WriteCycleEnd(r.ctx, c)

	default:
		st := Step{
			RunID:  r.runID,
			Cycle:  e.Cycle,
			Seq:    e.Seq,
			Kind:   string(e.Kind),
			Token:  string(e.Token),
			Waiter: string(e.Waiter),
		}
		st.ErrorKind, st.ErrorMessage = describe(e.Err)
		return r.store.WriteStep(r.ctx, st)
	}
}

func describe(err error) (kind, message string) {
	if err == nil {
		return "", ""
	}
	return string(dispatcher.KindOf(err)), err.Error()
}
