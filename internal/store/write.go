package store

import (
	"context"
	"fmt"
)

// BeginRun records a new run and returns its id.
func (s *Store) BeginRun(ctx context.Context, name string) (string, error) {
	id := s.ids.Generate()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name) VALUES (?, ?)
	`, id, name)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// WriteCycleStart inserts a cycle in the running state.
// The run referenced by c.RunID must exist (foreign key constraint).
func (s *Store) WriteCycleStart(ctx context.Context, c Cycle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles
		(run_id, cycle, action_type, payload_hash, status, started_seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		c.RunID,
		c.Cycle,
		c.ActionType,
		c.PayloadHash,
		StatusRunning,
		c.StartedSeq,
	)
	if err != nil {
		return fmt.Errorf("write cycle start: %w", err)
	}
	return nil
}

// WriteCycleEnd sets a running cycle's final status.
// status must be StatusCompleted or StatusFailed.
func (s *Store) WriteCycleEnd(ctx context.Context, c Cycle) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cycles
		SET status = ?, error_kind = ?, error_message = ?, finished_seq = ?
		WHERE run_id = ? AND cycle = ? AND status = ?
	`,
		c.Status,
		c.ErrorKind,
		c.ErrorMessage,
		c.FinishedSeq,
		c.RunID,
		c.Cycle,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("write cycle end: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write cycle end: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("write cycle end: no running cycle %d in run %s", c.Cycle, c.RunID)
	}
	return nil
}

// WriteStep inserts a step. The step's cycle must exist.
// Uses ON CONFLICT DO NOTHING for idempotency on (run_id, seq).
func (s *Store) WriteStep(ctx context.Context, st Step) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps
		(run_id, cycle, seq, kind, token, waiter, error_kind, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		st.RunID,
		st.Cycle,
		st.Seq,
		st.Kind,
		st.Token,
		st.Waiter,
		st.ErrorKind,
		st.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}
	return nil
}
