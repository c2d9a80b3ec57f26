package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/flux/internal/analyze"
	"github.com/roach88/flux/internal/dispatcher"
	"github.com/roach88/flux/internal/middleware"
	"github.com/roach88/flux/internal/store"
	"github.com/roach88/flux/internal/testutil"
	"github.com/roach88/flux/internal/value"
)

// Option configures a scenario run.
type Option func(*config)

type config struct {
	store  *store.Store
	logger *slog.Logger
	tokens dispatcher.TokenSource
}

// WithStore journals the run into st instead of a fresh in-memory store.
// The run id comes from st's generator.
func WithStore(st *store.Store) Option {
	return func(c *config) {
		c.store = st
	}
}

// WithLogger sets the logger handed to the dispatcher and filters.
// Default: logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTokenSource issues handler tokens from src, overriding the
// scenario's token prefix.
func WithTokenSource(src dispatcher.TokenSource) Option {
	return func(c *config) {
		c.tokens = src
	}
}

// Harness is the state of one scenario run.
type Harness struct {
	d        *dispatcher.Dispatcher
	store    *store.Store
	recorder *store.Recorder
	clock    *dispatcher.Clock
	logger   *slog.Logger
	result   *Result

	names  map[dispatcher.Token]string
	tokens map[string]dispatcher.Token
	step   int
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Analyze declared waits for circular dependencies (warnings only)
//  2. Open the journal and start a run
//  3. Install filters, then register handlers in order
//  4. Execute steps, comparing each outcome with expect_error
//  5. Evaluate assertions against the trace and journal
//
// A non-nil error means the scenario could not be executed; step and
// assertion failures are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := context.Background()
	st := cfg.store
	if st == nil {
		mem, err := store.Open(":memory:", store.WithRunIDs(testutil.NewFixedRunIDs("harness-"+scenario.Name)))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer mem.Close()
		st = mem
	}

	runID, err := st.BeginRun(ctx, scenario.Name)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:  st,
		clock:  dispatcher.NewClock(),
		logger: cfg.logger,
		result: NewResult(),
		names:  make(map[dispatcher.Token]string),
		tokens: make(map[string]dispatcher.Token),
	}
	h.result.RunID = runID
	h.result.Warnings = analyze.Cycles(scenario.WaitGraph())
	h.recorder = store.NewRecorder(ctx, st, runID, cfg.logger)

	tokens := cfg.tokens
	if tokens == nil {
		prefix := scenario.TokenPrefix
		if prefix == "" {
			prefix = dispatcher.DefaultTokenPrefix
		}
		tokens = dispatcher.NewSequence(prefix)
	}
	h.d = dispatcher.New(
		dispatcher.WithTokenSource(tokens),
		dispatcher.WithLogger(cfg.logger),
		dispatcher.WithObserver(h.recorder),
		dispatcher.WithObserver(dispatcher.ObserverFunc(h.observe)),
	)

	if err := h.install(scenario); err != nil {
		return nil, err
	}
	for _, spec := range scenario.Handlers {
		h.register(spec)
	}

	for i, step := range scenario.Steps {
		h.step = i
		if err := h.execute(step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	if err := h.recorder.Err(); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx, RunID: runID}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

// install adds the scenario's filters. Validation has already checked them.
func (h *Harness) install(s *Scenario) error {
	for _, f := range s.RegisterFilters {
		switch f.Type {
		case FilterRecover:
			h.d.AddRegisterFilter(middleware.Recover(h.logger))
		case FilterOnly:
			h.d.AddRegisterFilter(middleware.Only(f.Actions...))
		default:
			return fmt.Errorf("unknown register filter %q", f.Type)
		}
	}
	for _, f := range s.DispatchFilters {
		switch f.Type {
		case FilterLog:
			h.d.AddDispatchFilter(middleware.Logging(h.logger))
		case FilterGate:
			h.d.AddDispatchFilter(middleware.Gate(f.Field))
		case FilterRedirect:
			h.d.AddDispatchFilter(middleware.Redirect(f.Field, f.Action))
		default:
			return fmt.Errorf("unknown dispatch filter %q", f.Type)
		}
	}
	return nil
}

func (h *Harness) register(spec HandlerSpec) {
	fn := h.script(spec)
	var tok dispatcher.Token
	if spec.Action != "" {
		tok = h.d.RegisterAction(spec.Action, fn)
	} else {
		tok = h.d.Register(fn)
	}
	h.names[tok] = spec.Name
	h.tokens[spec.Name] = tok
	h.result.Tokens[spec.Name] = string(tok)
}

// script builds the handler function for spec.
func (h *Harness) script(spec HandlerSpec) dispatcher.Handler {
	return func(dispatcher.Payload) error {
		if len(spec.WaitFor) > 0 {
			toks := make([]dispatcher.Token, len(spec.WaitFor))
			for i, name := range spec.WaitFor {
				toks[i] = h.tokens[name]
			}
			if err := h.d.WaitFor(toks...); err != nil && !spec.IgnoreWaitErrors {
				return err
			}
		}

		if spec.NestedDispatch != "" {
			err := h.d.DispatchAction(spec.NestedDispatch, nil)
			h.record(TraceEvent{
				Kind:    EventNestedDispatch,
				Handler: spec.Name,
				Action:  spec.NestedDispatch,
				Error:   describe(err),
			})
		}

		if spec.Panic != "" {
			panic(spec.Panic)
		}
		if spec.Fail != "" {
			return errors.New(spec.Fail)
		}
		return nil
	}
}

// execute runs one step and checks its outcome.
func (h *Harness) execute(step Step) error {
	var err error
	switch {
	case step.Unregister != "":
		err = h.d.Unregister(h.tokens[step.Unregister])
		if err == nil {
			h.record(TraceEvent{Kind: EventUnregistered, Handler: step.Unregister})
		}

	case step.Action != "":
		fields, convErr := value.ObjectFromMap(step.Fields)
		if convErr != nil {
			return fmt.Errorf("fields: %w", convErr)
		}
		h.record(TraceEvent{Kind: EventDispatch, Action: step.Action})
		err = h.guard(func() error { return h.d.DispatchAction(step.Action, fields) })

	default:
		payload, convErr := value.ObjectFromMap(step.Dispatch)
		if convErr != nil {
			return fmt.Errorf("dispatch: %w", convErr)
		}
		action, _ := dispatcher.TypeOf(payload)
		h.record(TraceEvent{Kind: EventDispatch, Action: action})
		err = h.guard(func() error { return h.d.Dispatch(payload) })
	}

	got := outcome(err)
	if got != step.ExpectError {
		h.result.AddError(fmt.Sprintf("step %d: expected outcome %q, got %q (%v)",
			h.step, display(step.ExpectError), display(got), err))
	}
	return nil
}

// guard converts an unrecovered handler panic into an error.
func (h *Harness) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return fn()
}

// observe converts dispatcher events into trace events.
func (h *Harness) observe(e dispatcher.Event) {
	te := TraceEvent{
		Kind:    string(e.Kind),
		Cycle:   e.Cycle,
		Handler: h.names[e.Token],
		Waiter:  h.names[e.Waiter],
		Error:   describe(e.Err),
	}
	if e.Kind == dispatcher.EventCycleStarted {
		te.Action, _ = dispatcher.TypeOf(e.Payload)
	}
	h.record(te)
}

func (h *Harness) record(e TraceEvent) {
	e.Seq = h.clock.Next()
	e.Step = h.step
	h.result.Trace = append(h.result.Trace, e)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// outcome classifies a step error for expect_error.
func outcome(err error) string {
	if err == nil {
		return ""
	}
	if k := dispatcher.KindOf(err); k != "" {
		return string(k)
	}
	var pe *panicError
	if errors.As(err, &pe) {
		return OutcomePanic
	}
	return OutcomeHandler
}

// describe renders an error for the trace: the kind for dispatcher errors,
// the message otherwise.
func describe(err error) string {
	if err == nil {
		return ""
	}
	if k := dispatcher.KindOf(err); k != "" {
		return string(k)
	}
	return err.Error()
}

func display(outcome string) string {
	if outcome == "" {
		return "success"
	}
	return outcome
}
