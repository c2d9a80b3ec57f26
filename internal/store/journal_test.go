package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginRun_UUIDv7(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.BeginRun(ctx, "demo")
	require.NoError(t, err)

	uuidPattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	assert.Regexp(t, uuidPattern, id)

	run, err := s.ReadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "demo", run.Name)
}

func TestBeginRun_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	beginTestRun(t, s, "same")

	_, err := s.BeginRun(context.Background(), "again")
	assert.Error(t, err)
}

func TestReadRuns_Order(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ReadRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	beginTestRun(t, s, "b")
	beginTestRun(t, s, "a")

	runs, err = s.ReadRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, "a", runs[1].ID)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", latest.ID)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	_, err = s.LatestRun(context.Background())
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestCycleLifecycle(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	runID := beginTestRun(t, s, "run-1")

	require.NoError(t, s.WriteCycleStart(ctx, Cycle{
		RunID: runID, Cycle: 1, ActionType: "add", PayloadHash: "h1", StartedSeq: 1,
	}))
	require.NoError(t, s.WriteStep(ctx, Step{RunID: runID, Cycle: 1, Seq: 2, Kind: "handler_started", Token: "ID_1"}))
	require.NoError(t, s.WriteStep(ctx, Step{RunID: runID, Cycle: 1, Seq: 3, Kind: "handler_completed", Token: "ID_1"}))
	require.NoError(t, s.WriteCycleEnd(ctx, Cycle{
		RunID: runID, Cycle: 1, Status: StatusCompleted, FinishedSeq: 4,
	}))

	cycles, err := s.ReadCycles(ctx, runID)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, Cycle{
		RunID: runID, Cycle: 1, ActionType: "add", PayloadHash: "h1",
		Status: StatusCompleted, StartedSeq: 1, FinishedSeq: 4,
	}, cycles[0])

	steps, err := s.ReadSteps(ctx, runID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, int64(2), steps[0].Seq)
	assert.Equal(t, "handler_completed", steps[1].Kind)
}

func TestWriteCycleEnd_OnlyOnce(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	runID := beginTestRun(t, s, "run-1")

	require.NoError(t, s.WriteCycleStart(ctx, Cycle{RunID: runID, Cycle: 1, PayloadHash: "h", StartedSeq: 1}))
	end := Cycle{RunID: runID, Cycle: 1, Status: StatusFailed, ErrorKind: "CircularDependency", FinishedSeq: 2}
	require.NoError(t, s.WriteCycleEnd(ctx, end))

	assert.Error(t, s.WriteCycleEnd(ctx, end), "a finished cycle cannot be finished again")
}

func TestWriteStep_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	runID := beginTestRun(t, s, "run-1")
	require.NoError(t, s.WriteCycleStart(ctx, Cycle{RunID: runID, Cycle: 1, PayloadHash: "h", StartedSeq: 1}))

	st := Step{RunID: runID, Cycle: 1, Seq: 2, Kind: "handler_started", Token: "ID_1"}
	require.NoError(t, s.WriteStep(ctx, st))
	require.NoError(t, s.WriteStep(ctx, st))

	steps, err := s.ReadSteps(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestReadCycles_Empty(t *testing.T) {
	s := createTestStore(t)

	cycles, err := s.ReadCycles(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, cycles)
	assert.Empty(t, cycles)
}
