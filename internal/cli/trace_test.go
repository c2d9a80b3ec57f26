package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/harness"
	"github.com/roach88/flux/internal/store"
	"github.com/roach88/flux/internal/testutil"
)

// journal runs a repository scenario into a new database and returns its path.
func journal(t *testing.T, scenarioFile, runID string) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "flux.db")
	st, err := store.Open(db, store.WithRunIDs(testutil.NewFixedRunIDs(runID)))
	require.NoError(t, err)
	defer st.Close()

	scenario, err := harness.LoadScenario(filepath.Join(scenariosDir, scenarioFile))
	require.NoError(t, err)
	_, err = harness.Run(scenario, harness.WithStore(st))
	require.NoError(t, err)
	return db
}

func TestTraceCommand_RequiresDB(t *testing.T) {
	_, err := execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestTraceCommand_MissingDatabase(t *testing.T) {
	_, err := execute(t, "trace", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceCommand_EmptyJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = execute(t, "trace", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no runs in journal")
}

func TestTraceCommand_UnknownRun(t *testing.T) {
	db := journal(t, "basic_broadcast.yaml", "run-1")

	_, err := execute(t, "trace", "--db", db, "--run", "run-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: run-2")
}

func TestTraceCommand_Text(t *testing.T) {
	db := journal(t, "circular_wait.yaml", "run-circular")

	out, err := execute(t, "trace", "--db", db, "--run", "run-circular")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for Run: run-circular (circular_wait)")
	assert.Contains(t, out, "cycle 1 refresh failed [CircularDependency]")
	assert.Contains(t, out, "[4] wait_for ID_2 <- ID_1")
	assert.Contains(t, out, "Failed:    1")
}

func TestTraceCommand_JSON(t *testing.T) {
	db := journal(t, "wait_for_ordering.yaml", "run-wait")

	out, err := execute(t, "trace", "--db", db, "--format", "json")
	require.NoError(t, err)

	var result TraceResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-wait", result.RunID)
	require.Len(t, result.Cycles, 1)

	c := result.Cycles[0]
	assert.Equal(t, "update_cart", c.ActionType)
	assert.Len(t, c.PayloadHash, 64)
	require.Len(t, c.Steps, 8)
	assert.Equal(t, TraceStep{Seq: 4, Kind: "wait_for", Token: "ID_2", Waiter: "ID_1"}, c.Steps[1])
	assert.Equal(t, TraceStats{Cycles: 1, Completed: 1, Steps: 8}, result.Stats)
}

func TestTraceCommand_CycleFilter(t *testing.T) {
	db := filepath.Join(t.TempDir(), "flux.db")
	st, err := store.Open(db, store.WithRunIDs(testutil.NewFixedRunIDs("run-two")))
	require.NoError(t, err)

	scenario := &harness.Scenario{
		Name:        "two_cycles",
		Description: "two dispatches",
		Handlers:    []harness.HandlerSpec{{Name: "a"}},
		Steps:       []harness.Step{{Action: "first"}, {Action: "second"}},
	}
	_, err = harness.Run(scenario, harness.WithStore(st))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "trace", "--db", db, "--cycle", "2", "--format", "json")
	require.NoError(t, err)

	var result TraceResult
	decode(t, out, &result)
	require.Len(t, result.Cycles, 1)
	assert.Equal(t, int64(2), result.Cycles[0].Cycle)
	assert.Equal(t, "second", result.Cycles[0].ActionType)
}

func TestBuildTrace_EmptyCycleSteps(t *testing.T) {
	st, err := store.Open(":memory:", store.WithRunIDs(testutil.NewFixedRunIDs("r")))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	_, err = st.BeginRun(ctx, "bare")
	require.NoError(t, err)
	require.NoError(t, st.WriteCycleStart(ctx, store.Cycle{RunID: "r", Cycle: 1, StartedSeq: 1}))

	result, err := buildTrace(ctx, st, &TraceOptions{RootOptions: &RootOptions{}})
	require.NoError(t, err)
	require.Len(t, result.Cycles, 1)
	assert.NotNil(t, result.Cycles[0].Steps)
	assert.Equal(t, 1, result.Stats.Running)
}
