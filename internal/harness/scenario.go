package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flux/internal/analyze"
	"github.com/roach88/flux/internal/dispatcher"
)

// Scenario defines a scripted dispatcher run.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// TokenPrefix overrides the handler token prefix (default "ID_").
	TokenPrefix string `yaml:"token_prefix,omitempty" json:"token_prefix,omitempty"`

	// RegisterFilters are installed before any handler is registered.
	RegisterFilters []FilterSpec `yaml:"register_filters,omitempty" json:"register_filters,omitempty"`

	// DispatchFilters are installed in order; the first is outermost.
	DispatchFilters []FilterSpec `yaml:"dispatch_filters,omitempty" json:"dispatch_filters,omitempty"`

	// Handlers are registered in order.
	Handlers []HandlerSpec `yaml:"handlers" json:"handlers"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps" json:"steps"`

	// Assertions validate the final trace and journal.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// HandlerSpec scripts one handler. When called it:
//  1. waits for WaitFor (returning the error unless IgnoreWaitErrors)
//  2. attempts a nested dispatch of NestedDispatch, recording the outcome
//  3. panics with Panic, or fails with Fail, or succeeds
type HandlerSpec struct {
	// Name identifies the handler in the scenario and trace.
	Name string `yaml:"name" json:"name"`

	// Action registers the handler with RegisterAction.
	Action string `yaml:"action,omitempty" json:"action,omitempty"`

	// WaitFor lists handler names to wait for, in order.
	WaitFor []string `yaml:"wait_for,omitempty" json:"wait_for,omitempty"`

	// IgnoreWaitErrors makes the handler carry on after a failed WaitFor.
	IgnoreWaitErrors bool `yaml:"ignore_wait_errors,omitempty" json:"ignore_wait_errors,omitempty"`

	// NestedDispatch is an action type the handler tries to dispatch.
	// The outcome is recorded and never returned.
	NestedDispatch string `yaml:"nested_dispatch,omitempty" json:"nested_dispatch,omitempty"`

	// Fail is an error message the handler returns.
	Fail string `yaml:"fail,omitempty" json:"fail,omitempty"`

	// Panic is a value the handler panics with.
	Panic string `yaml:"panic,omitempty" json:"panic,omitempty"`
}

// FilterSpec selects a stock filter.
//
// Register filters: "recover", "only" (Actions).
// Dispatch filters: "log", "gate" (Field), "redirect" (Field, Action).
type FilterSpec struct {
	Type    string   `yaml:"type" json:"type"`
	Field   string   `yaml:"field,omitempty" json:"field,omitempty"`
	Action  string   `yaml:"action,omitempty" json:"action,omitempty"`
	Actions []string `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Filter type constants.
const (
	FilterRecover  = "recover"
	FilterOnly     = "only"
	FilterLog      = "log"
	FilterGate     = "gate"
	FilterRedirect = "redirect"
)

// Step is one scenario operation. Exactly one of Dispatch, Action or
// Unregister must be set.
type Step struct {
	// Dispatch is a raw payload passed to Dispatch.
	Dispatch map[string]any `yaml:"dispatch,omitempty" json:"dispatch,omitempty"`

	// Action and Fields are passed to DispatchAction.
	Action string         `yaml:"action,omitempty" json:"action,omitempty"`
	Fields map[string]any `yaml:"fields,omitempty" json:"fields,omitempty"`

	// Unregister names a handler to unregister.
	Unregister string `yaml:"unregister,omitempty" json:"unregister,omitempty"`

	// ExpectError is the expected outcome: a dispatcher error kind,
	// "handler" for any other error, "panic" for an unrecovered panic.
	// Empty expects success.
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
}

// Outcome names used by ExpectError besides the dispatcher kinds.
const (
	OutcomeHandler = "handler"
	OutcomePanic   = "panic"
)

var knownOutcomes = []string{
	string(dispatcher.KindUnregisteredToken),
	string(dispatcher.KindNotDispatching),
	string(dispatcher.KindCircularDependency),
	string(dispatcher.KindAlreadyDispatching),
	OutcomeHandler,
	OutcomePanic,
}

// Assertion validates the trace or journal after all steps ran.
type Assertion struct {
	// Type specifies the assertion type:
	// - "start_order": handlers start in this relative order
	// - "complete_order": handlers complete in this relative order
	// - "call_count": handler starts exactly Count times
	// - "cycle_status": journaled cycle has Status (and ErrorKind, if set)
	Type string `yaml:"type" json:"type"`

	// Handlers is the expected order (start_order, complete_order).
	Handlers []string `yaml:"handlers,omitempty" json:"handlers,omitempty"`

	// Handler is the handler counted by call_count.
	Handler string `yaml:"handler,omitempty" json:"handler,omitempty"`

	// Count is the expected number of starts (call_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Cycle restricts the assertion to one dispatch cycle (1-based).
	// Zero means all cycles. Required for cycle_status.
	Cycle int64 `yaml:"cycle,omitempty" json:"cycle,omitempty"`

	// Status is the expected cycle status (cycle_status).
	Status string `yaml:"status,omitempty" json:"status,omitempty"`

	// ErrorKind is the expected journaled error kind (cycle_status).
	ErrorKind string `yaml:"error_kind,omitempty" json:"error_kind,omitempty"`
}

// Assertion type constants.
const (
	AssertStartOrder    = "start_order"
	AssertCompleteOrder = "complete_order"
	AssertCallCount     = "call_count"
	AssertCycleStatus   = "cycle_status"
)

// LoadScenario reads, parses and validates a scenario file.
// The format is chosen by extension: .yaml/.yml or .cue.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		scenario, err = ParseYAML(data)
	case ".cue":
		scenario, err = ParseCUE(data, path)
	default:
		return nil, fmt.Errorf("unsupported scenario file extension %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := ValidateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseYAML decodes a YAML scenario without validating it.
// Unknown fields are rejected so typos surface as errors.
func ParseYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// IsScenarioFile reports whether path has a scenario file extension.
func IsScenarioFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

// WaitGraph returns the declared waitFor graph of s.
func (s *Scenario) WaitGraph() analyze.Graph {
	g := make(analyze.Graph, len(s.Handlers))
	for _, h := range s.Handlers {
		g[h.Name] = append(g[h.Name], h.WaitFor...)
	}
	return g
}

// ValidateScenario checks that required fields are present and that every
// name reference resolves. Circular waits are not errors; see analyze.Cycles.
func ValidateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Handlers) == 0 {
		return fmt.Errorf("handlers list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Handlers))
	for i, h := range s.Handlers {
		if h.Name == "" {
			return fmt.Errorf("handlers[%d]: name is required", i)
		}
		if names[h.Name] {
			return fmt.Errorf("handlers[%d]: duplicate handler name %q", i, h.Name)
		}
		names[h.Name] = true
		if h.Fail != "" && h.Panic != "" {
			return fmt.Errorf("handlers[%d]: fail and panic are mutually exclusive", i)
		}
	}
	if unknown := analyze.Unknown(s.WaitGraph()); len(unknown) > 0 {
		return fmt.Errorf("wait_for references unknown handler: %s", unknown[0])
	}

	for i, f := range s.RegisterFilters {
		if err := validateRegisterFilter(i, f); err != nil {
			return err
		}
	}
	for i, f := range s.DispatchFilters {
		if err := validateDispatchFilter(i, f); err != nil {
			return err
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step, names); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, names); err != nil {
			return err
		}
	}

	return nil
}

func validateRegisterFilter(i int, f FilterSpec) error {
	switch f.Type {
	case FilterRecover:
	case FilterOnly:
		if len(f.Actions) == 0 {
			return fmt.Errorf("register_filters[%d]: actions is required for only", i)
		}
	case "":
		return fmt.Errorf("register_filters[%d]: type is required", i)
	default:
		return fmt.Errorf("register_filters[%d]: unknown register filter %q", i, f.Type)
	}
	return nil
}

func validateDispatchFilter(i int, f FilterSpec) error {
	switch f.Type {
	case FilterLog:
	case FilterGate:
		if f.Field == "" {
			return fmt.Errorf("dispatch_filters[%d]: field is required for gate", i)
		}
	case FilterRedirect:
		if f.Field == "" || f.Action == "" {
			return fmt.Errorf("dispatch_filters[%d]: field and action are required for redirect", i)
		}
	case "":
		return fmt.Errorf("dispatch_filters[%d]: type is required", i)
	default:
		return fmt.Errorf("dispatch_filters[%d]: unknown dispatch filter %q", i, f.Type)
	}
	return nil
}

func validateStep(i int, step Step, names map[string]bool) error {
	set := 0
	if step.Dispatch != nil {
		set++
	}
	if step.Action != "" {
		set++
	}
	if step.Unregister != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of dispatch, action or unregister is required", i)
	}
	if step.Fields != nil && step.Action == "" {
		return fmt.Errorf("steps[%d]: fields requires action", i)
	}
	if step.Unregister != "" && !names[step.Unregister] {
		return fmt.Errorf("steps[%d]: unregister references unknown handler %q", i, step.Unregister)
	}
	if step.ExpectError != "" && !slices.Contains(knownOutcomes, step.ExpectError) {
		return fmt.Errorf("steps[%d]: unknown expect_error %q", i, step.ExpectError)
	}
	return nil
}

func validateAssertion(i int, a Assertion, names map[string]bool) error {
	switch a.Type {
	case AssertStartOrder, AssertCompleteOrder:
		if len(a.Handlers) == 0 {
			return fmt.Errorf("assertions[%d]: handlers list is required for %s", i, a.Type)
		}
		for _, h := range a.Handlers {
			if !names[h] {
				return fmt.Errorf("assertions[%d]: unknown handler %q", i, h)
			}
		}
	case AssertCallCount:
		if !names[a.Handler] {
			return fmt.Errorf("assertions[%d]: unknown handler %q", i, a.Handler)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", i)
		}
	case AssertCycleStatus:
		if a.Cycle <= 0 {
			return fmt.Errorf("assertions[%d]: cycle is required for cycle_status", i)
		}
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for cycle_status", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
