package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/dispatcher"
	"github.com/roach88/flux/internal/store"
	"github.com/roach88/flux/internal/testutil"
)

// kinds returns the trace event kinds with their handler, for compact
// comparisons.
func kinds(trace []TraceEvent) []string {
	out := make([]string, len(trace))
	for i, e := range trace {
		out[i] = e.Kind
		if e.Handler != "" {
			out[i] += ":" + e.Handler
		}
	}
	return out
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Handlers:    []HandlerSpec{{Name: "only"}},
		Steps:       []Step{{Action: "ping"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "harness-minimal", result.RunID)
	assert.Equal(t, map[string]string{"only": "ID_1"}, result.Tokens)

	assert.Equal(t, []string{
		EventDispatch,
		"cycle_started",
		"handler_started:only",
		"handler_completed:only",
		"cycle_completed",
	}, kinds(result.Trace))

	for i, e := range result.Trace {
		assert.Equal(t, int64(i+1), e.Seq, "trace seq must be contiguous")
	}
}

func TestRun_TokenPrefix(t *testing.T) {
	scenario := &Scenario{
		Name:        "prefixed",
		Description: "Custom token prefix",
		TokenPrefix: "store-",
		Handlers:    []HandlerSpec{{Name: "a"}, {Name: "b"}},
		Steps:       []Step{{Action: "ping"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a": "store-1", "b": "store-2"}, result.Tokens)
}

func TestRun_RawDispatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "raw",
		Description: "Raw payload without a type field",
		Handlers: []HandlerSpec{
			{Name: "any"},
			{Name: "typed", Action: "save"},
		},
		Steps: []Step{
			{Dispatch: map[string]any{"value": 1}},
			{Dispatch: map[string]any{"type": "save"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	assert.Equal(t, "", result.Trace[0].Action)
	assert.Equal(t, "cycle_completed", result.Trace[6].Kind)
	assert.Equal(t, "save", result.Trace[7].Action)
	assert.Equal(t, int64(2), result.Trace[8].Cycle)
}

func TestRun_UnexpectedOutcome(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "Handler failure not declared by the step",
		Handlers:    []HandlerSpec{{Name: "broken", Fail: "disk full"}},
		Steps:       []Step{{Action: "save"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected outcome "success", got "handler"`)
}

func TestRun_HandlerFailureStopsCycle(t *testing.T) {
	scenario := &Scenario{
		Name:        "failure",
		Description: "A failing handler ends the cycle",
		Handlers: []HandlerSpec{
			{Name: "first"},
			{Name: "broken", Fail: "disk full"},
			{Name: "never"},
		},
		Steps: []Step{
			{Action: "save", ExpectError: OutcomeHandler},
			{Action: "save", ExpectError: OutcomeHandler},
		},
		Assertions: []Assertion{
			{Type: AssertCallCount, Handler: "never", Count: 0},
			{Type: AssertCallCount, Handler: "first", Count: 2},
			{Type: AssertCycleStatus, Cycle: 2, Status: store.StatusFailed},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, "cycle_failed", last.Kind)
	assert.Equal(t, "disk full", last.Error)
}

func TestRun_SwallowedWaitErrorStillFailsCycle(t *testing.T) {
	scenario := &Scenario{
		Name:        "swallowed",
		Description: "Ignoring a WaitFor violation does not rescue the cycle",
		Handlers: []HandlerSpec{
			{Name: "waiter", WaitFor: []string{"gone"}, IgnoreWaitErrors: true},
			{Name: "gone"},
			{Name: "after"},
		},
		Steps: []Step{
			{Unregister: "gone"},
			{Action: "refresh", ExpectError: "UnregisteredToken"},
		},
		Assertions: []Assertion{
			{Type: AssertCallCount, Handler: "after", Count: 0},
			{Type: AssertCycleStatus, Cycle: 1, Status: store.StatusFailed, ErrorKind: "UnregisteredToken"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	assert.Equal(t, []string{
		"unregistered:gone",
		EventDispatch,
		"cycle_started",
		"handler_started:waiter",
		"handler_failed:waiter",
		"cycle_failed",
	}, kinds(result.Trace))
	assert.Equal(t, "UnregisteredToken", result.Trace[4].Error)
}

func TestRun_UnregisterTwice(t *testing.T) {
	scenario := &Scenario{
		Name:        "unregister_twice",
		Description: "A token can only be unregistered once",
		Handlers:    []HandlerSpec{{Name: "a"}},
		Steps: []Step{
			{Unregister: "a"},
			{Unregister: "a", ExpectError: "UnregisteredToken"},
			{Action: "ping"},
		},
		Assertions: []Assertion{
			{Type: AssertCallCount, Handler: "a", Count: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)
}

func TestRun_UnrecoveredPanic(t *testing.T) {
	scenario := &Scenario{
		Name:        "panic",
		Description: "A panicking handler fails the step and releases the dispatcher",
		Handlers:    []HandlerSpec{{Name: "boom", Panic: "kaboom"}},
		Steps: []Step{
			{Action: "first", ExpectError: OutcomePanic},
			{Action: "second", ExpectError: OutcomePanic},
		},
		Assertions: []Assertion{
			{Type: AssertCycleStatus, Cycle: 1, Status: store.StatusFailed},
			{Type: AssertCycleStatus, Cycle: 2, Status: store.StatusFailed},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	assert.Equal(t, "cycle_failed", result.Trace[3].Kind)
	assert.Equal(t, "panic: kaboom", result.Trace[3].Error)
}

func TestRun_RecoverFilter(t *testing.T) {
	scenario := &Scenario{
		Name:            "recovered",
		Description:     "Recover turns a panic into a handler error",
		RegisterFilters: []FilterSpec{{Type: FilterRecover}},
		Handlers:        []HandlerSpec{{Name: "boom", Panic: "kaboom"}},
		Steps:           []Step{{Action: "go", ExpectError: OutcomeHandler}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	assert.Equal(t, "handler_failed", result.Trace[3].Kind)
	assert.Equal(t, "panic in handler: kaboom", result.Trace[3].Error)
}

func TestRun_OnlyFilter(t *testing.T) {
	scenario := &Scenario{
		Name:            "only",
		Description:     "Only restricts handlers registered after it",
		RegisterFilters: []FilterSpec{{Type: FilterOnly, Actions: []string{"save"}}},
		Handlers:        []HandlerSpec{{Name: "saver", Fail: "rejected"}},
		Steps: []Step{
			{Action: "load"},
			{Action: "save", ExpectError: OutcomeHandler},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_GateFilter(t *testing.T) {
	scenario := &Scenario{
		Name:            "gate",
		Description:     "Gate drops flagged payloads before any cycle starts",
		DispatchFilters: []FilterSpec{{Type: FilterLog}, {Type: FilterGate, Field: "muted"}},
		Handlers:        []HandlerSpec{{Name: "listener"}},
		Steps: []Step{
			{Action: "ping", Fields: map[string]any{"muted": true}},
			{Action: "ping", Fields: map[string]any{"muted": false}},
		},
		Assertions: []Assertion{
			{Type: AssertCallCount, Handler: "listener", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	assert.Equal(t, EventDispatch, result.Trace[0].Kind)
	assert.Equal(t, EventDispatch, result.Trace[1].Kind)
	assert.Equal(t, 1, result.Trace[1].Step)
	assert.Equal(t, int64(1), result.Trace[2].Cycle, "dropped dispatch must not start a cycle")
}

func TestRun_CircularWarnings(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/circular_wait.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, []string{"left", "right", "left"}, result.Warnings[0].Path)
}

func TestRun_WithStore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "journal.db"),
		store.WithRunIDs(testutil.NewFixedRunIDs("run-1")))
	require.NoError(t, err)
	defer st.Close()

	scenario, err := LoadScenario("../../testdata/scenarios/wait_for_ordering.yaml")
	require.NoError(t, err)

	result, err := Run(scenario, WithStore(st))
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)
	assert.Equal(t, "run-1", result.RunID)

	ctx := context.Background()
	run, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "wait_for_ordering", run.Name)

	cycles, err := st.ReadCycles(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, "update_cart", cycles[0].ActionType)
	assert.Equal(t, store.StatusCompleted, cycles[0].Status)

	steps, err := st.ReadSteps(ctx, "run-1")
	require.NoError(t, err)
	// Three handlers started and completed, plus two waits.
	assert.Len(t, steps, 8)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/wait_for_ordering.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	require.NotEmpty(t, first.Trace)
	assert.Equal(t, int64(1), first.Trace[0].Seq)
	assert.Equal(t, int64(1), second.Trace[0].Seq, "each run numbers its trace from 1")
	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Tokens, second.Tokens)
}

func TestRun_WithTokenSource(t *testing.T) {
	src := dispatcher.NewSequence("shared-")
	src.Next()

	scenario := &Scenario{
		Name:        "shared",
		Description: "Tokens from an external source",
		TokenPrefix: "ignored-",
		Handlers:    []HandlerSpec{{Name: "a"}},
		Steps:       []Step{{Action: "ping"}},
	}

	result, err := Run(scenario, WithTokenSource(src))
	require.NoError(t, err)
	assert.Equal(t, "shared-2", result.Tokens["a"])
}
