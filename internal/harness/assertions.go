package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/flux/internal/dispatcher"
	"github.com/roach88/flux/internal/store"
)

// AssertionContext provides the journal for cycle_status assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nHandler starts:\n")
		for _, event := range e.Trace {
			if event.Kind == string(dispatcher.EventHandlerStarted) {
				fmt.Fprintf(&buf, "  [%d] cycle %d %s\n", event.Seq, event.Cycle, event.Handler)
			}
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertStartOrder:
			err = assertOrder(result.Trace, a, dispatcher.EventHandlerStarted)
		case AssertCompleteOrder:
			err = assertOrder(result.Trace, a, dispatcher.EventHandlerCompleted)
		case AssertCallCount:
			err = assertCallCount(result.Trace, a)
		case AssertCycleStatus:
			err = assertCycleStatus(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// names returns the handler names of events of the given kind, in trace
// order, restricted to a.Cycle when set.
func names(trace []TraceEvent, kind dispatcher.EventKind, cycle int64) []string {
	var out []string
	for _, e := range trace {
		if e.Kind != string(kind) {
			continue
		}
		if cycle > 0 && e.Cycle != cycle {
			continue
		}
		out = append(out, e.Handler)
	}
	return out
}

// assertOrder checks that a.Handlers appear in this relative order among
// events of kind. Other handlers may appear in between.
func assertOrder(trace []TraceEvent, a Assertion, kind dispatcher.EventKind) error {
	seen := names(trace, kind, a.Cycle)

	positions := make(map[string]int)
	for i, name := range seen {
		if _, ok := positions[name]; !ok {
			positions[name] = i + 1 // 1-indexed for readability
		}
	}

	for _, name := range a.Handlers {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("all handlers present: %v", a.Handlers),
				Actual:   fmt.Sprintf("missing handler: %s (saw %v)", name, seen),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Handlers); i++ {
		prev, curr := a.Handlers[i-1], a.Handlers[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("handlers in order: %v", a.Handlers),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertCallCount checks that the handler started exactly a.Count times.
func assertCallCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, name := range names(trace, dispatcher.EventHandlerStarted, a.Cycle) {
		if name == a.Handler {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d calls of %s", a.Count, a.Handler),
			Actual:   fmt.Sprintf("%d calls", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertCycleStatus checks a cycle's journaled status and error kind.
func assertCycleStatus(actx *AssertionContext, a Assertion) error {
	if actx == nil || actx.Store == nil {
		return fmt.Errorf("cycle_status assertion requires a journal")
	}

	cycles, err := actx.Store.ReadCycles(actx.Ctx, actx.RunID)
	if err != nil {
		return err
	}

	for _, c := range cycles {
		if c.Cycle != a.Cycle {
			continue
		}
		if c.Status != a.Status || (a.ErrorKind != "" && c.ErrorKind != a.ErrorKind) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("cycle %d %s %s", a.Cycle, a.Status, a.ErrorKind),
				Actual:   fmt.Sprintf("cycle %d %s %s", c.Cycle, c.Status, c.ErrorKind),
			}
		}
		return nil
	}

	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("cycle %d in journal", a.Cycle),
		Actual:   fmt.Sprintf("%d cycles journaled", len(cycles)),
	}
}
