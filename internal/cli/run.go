package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/analyze"
	"github.com/roach88/flux/internal/dispatcher"
	"github.com/roach88/flux/internal/harness"
	"github.com/roach88/flux/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database     string
	SharedTokens bool

	// RunIDs allows overriding the journal run id generator (for testing).
	// If nil, the store's UUIDv7 generator is used.
	RunIDs store.RunIDGenerator
}

// RunResult is the output of the run command.
type RunResult struct {
	Scenario string                 `json:"scenario"`
	RunID    string                 `json:"run_id"`
	Pass     bool                   `json:"pass"`
	Tokens   map[string]string      `json:"tokens"`
	Trace    []harness.TraceEvent   `json:"trace"`
	Warnings []analyze.CycleWarning `json:"warnings,omitempty"`
	Errors   []string               `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario and print its trace",
		Long: `Run a single scenario file through a fresh dispatcher.

Prints every dispatcher and harness event in order, then the outcome of
each expect_error and assertion. With --db the run is journaled to a
SQLite database (created if missing) and can be inspected with trace.

Exit codes:
  0 - Scenario passed
  1 - A step outcome or assertion did not match
  2 - Command error (missing file, invalid scenario, etc.)

Examples:
  flux run ./scenarios/checkout.yaml
  flux run ./scenarios/checkout.yaml --db ./flux.db
  flux run ./scenarios/checkout.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run to this SQLite database")
	cmd.Flags().BoolVar(&opts.SharedTokens, "shared-tokens", false, "issue tokens from the process-wide counter")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	scenario, loadErr := loadScenario(path)
	if loadErr != nil {
		_ = formatter.Error(loadErr.Code, loadErr.Message, loadErr.Path)
		return WrapExitError(ExitCommandError, "failed to load scenario", loadErr)
	}
	formatter.VerboseLog("Loaded scenario %s (%d handlers, %d steps)",
		scenario.Name, len(scenario.Handlers), len(scenario.Steps))

	runOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.SharedTokens {
		runOpts = append(runOpts, harness.WithTokenSource(dispatcher.SharedTokens()))
	}

	if opts.Database != "" {
		var storeOpts []store.Option
		if opts.RunIDs != nil {
			storeOpts = append(storeOpts, store.WithRunIDs(opts.RunIDs))
		}
		st, err := store.Open(opts.Database, storeOpts...)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), opts.Database)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithStore(st))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), scenario.Name)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunResult{
		Scenario: scenario.Name,
		RunID:    result.RunID,
		Pass:     result.Pass,
		Tokens:   result.Tokens,
		Trace:    result.Trace,
		Warnings: result.Warnings,
		Errors:   result.Errors,
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: out}
		if !out.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeTestFailed,
				Message: fmt.Sprintf("scenario %s failed", out.Scenario),
				Details: out.Errors,
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		outputRunText(formatter.Writer, out, opts.Database != "")
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", out.Scenario))
	}
	return nil
}

func outputRunText(w io.Writer, out RunResult, journaled bool) {
	fmt.Fprintf(w, "Scenario: %s\n", out.Scenario)
	if journaled {
		fmt.Fprintf(w, "Run: %s\n", out.RunID)
	}
	fmt.Fprintln(w)

	for _, warning := range out.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning.Message)
	}
	if len(out.Warnings) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "=== Trace ===")
	for _, e := range out.Trace {
		fmt.Fprintf(w, "  %s\n", formatEvent(e))
	}
	fmt.Fprintln(w)

	if out.Pass {
		fmt.Fprintln(w, "PASS")
		return
	}
	fmt.Fprintln(w, "FAIL")
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// formatEvent renders one trace event on a single line.
func formatEvent(e harness.TraceEvent) string {
	line := fmt.Sprintf("[%d] step %d", e.Seq, e.Step)
	if e.Cycle > 0 {
		line += fmt.Sprintf(" cycle %d", e.Cycle)
	}
	line += " " + e.Kind
	if e.Handler != "" {
		line += " " + e.Handler
	}
	if e.Waiter != "" {
		line += " (waiter " + e.Waiter + ")"
	}
	if e.Action != "" {
		line += " action=" + e.Action
	}
	if e.Error != "" {
		line += " error=" + e.Error
	}
	return line
}
