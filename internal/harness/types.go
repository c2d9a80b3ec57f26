package harness

import "github.com/roach88/flux/internal/analyze"

// Trace event kinds recorded by the harness itself. All other kinds are the
// dispatcher's observer event kinds.
const (
	EventDispatch       = "dispatch"
	EventNestedDispatch = "nested_dispatch"
	EventUnregistered   = "unregistered"
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Kind    string `json:"kind"`
	Step    int    `json:"step"`
	Cycle   int64  `json:"cycle,omitempty"`
	Handler string `json:"handler,omitempty"`
	Waiter  string `json:"waiter,omitempty"`
	Action  string `json:"action,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step outcome and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every dispatcher and harness event in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Warnings are circular waitFor declarations found before running.
	Warnings []analyze.CycleWarning `json:"warnings,omitempty"`

	// Tokens maps handler names to the tokens they were registered under.
	Tokens map[string]string `json:"tokens"`

	// RunID is the journal run the scenario was recorded under.
	RunID string `json:"run_id"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Tokens: make(map[string]string),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
