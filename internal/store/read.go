package store

import (
	"context"
	"fmt"
)

// ReadRuns returns all runs in creation order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, name FROM runs ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Seq, &r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run by id.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, id, name FROM runs WHERE id = ?
	`, id).Scan(&r.Seq, &r.ID, &r.Name)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// LatestRun returns the most recently started run.
// Returns sql.ErrNoRows (wrapped) if the journal is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, id, name FROM runs ORDER BY seq DESC LIMIT 1
	`).Scan(&r.Seq, &r.ID, &r.Name)
	if err != nil {
		return Run{}, fmt.Errorf("read latest run: %w", err)
	}
	return r, nil
}

// ReadCycles returns a run's cycles in cycle order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadCycles(ctx context.Context, runID string) ([]Cycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, cycle, action_type, payload_hash, status,
		       error_kind, error_message, started_seq, finished_seq
		FROM cycles
		WHERE run_id = ?
		ORDER BY cycle ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	cycles := []Cycle{}
	for rows.Next() {
		var c Cycle
		if err := rows.Scan(
			&c.RunID, &c.Cycle, &c.ActionType, &c.PayloadHash, &c.Status,
			&c.ErrorKind, &c.ErrorMessage, &c.StartedSeq, &c.FinishedSeq,
		); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	return cycles, nil
}

// ReadSteps returns a run's steps in seq order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, cycle, seq, kind, token, waiter, error_kind, error_message
		FROM steps
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []Step{}
	for rows.Next() {
		var st Step
		if err := rows.Scan(
			&st.RunID, &st.Cycle, &st.Seq, &st.Kind, &st.Token,
			&st.Waiter, &st.ErrorKind, &st.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}
