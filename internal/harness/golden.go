package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/flux/internal/value"
)

// Snapshot renders a result's trace as canonical JSON for golden comparison.
//
// Only fields that are set are included, so the output does not change when
// unrelated optional fields are added.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		m := map[string]any{
			"seq":  e.Seq,
			"kind": e.Kind,
			"step": e.Step,
		}
		if e.Cycle != 0 {
			m["cycle"] = e.Cycle
		}
		if e.Handler != "" {
			m["handler"] = e.Handler
		}
		if e.Waiter != "" {
			m["waiter"] = e.Waiter
		}
		if e.Action != "" {
			m["action"] = e.Action
		}
		if e.Error != "" {
			m["error"] = e.Error
		}
		trace[i] = m
	}

	return value.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
	})
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie) occurs
// if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
