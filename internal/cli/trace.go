package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Cycle    int64 // optional - filter to one cycle
}

// TraceCycle is one journaled cycle with its steps.
type TraceCycle struct {
	Cycle        int64       `json:"cycle"`
	ActionType   string      `json:"action_type,omitempty"`
	PayloadHash  string      `json:"payload_hash"`
	Status       string      `json:"status"`
	ErrorKind    string      `json:"error_kind,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Steps        []TraceStep `json:"steps"`
}

// TraceStep is one journaled handler or waitFor event.
type TraceStep struct {
	Seq       int64  `json:"seq"`
	Kind      string `json:"kind"`
	Token     string `json:"token,omitempty"`
	Waiter    string `json:"waiter,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID  string       `json:"run_id"`
	Name   string       `json:"name"`
	Cycles []TraceCycle `json:"cycles"`
	Stats  TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	Cycles    int `json:"cycles"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Running   int `json:"running"`
	Steps     int `json:"steps"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a journaled run",
		Long: `Show the cycles and steps of a run journaled with run --db.

Each cycle lists its action type, payload hash and final status,
followed by the handler starts, completions, failures and waits
recorded during it. Without --run the most recent run is shown.

Examples:
  flux trace --db ./flux.db
  flux trace --db ./flux.db --run 0190a6e4-...
  flux trace --db ./flux.db --cycle 2 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show (default: latest)")
	cmd.Flags().Int64Var(&opts.Cycle, "cycle", 0, "show only this cycle")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Open would create an empty journal; trace only reads existing ones.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result, err := buildTrace(ctx, st, opts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg := "no runs in journal"
			if opts.RunID != "" {
				msg = fmt.Sprintf("run not found: %s", opts.RunID)
			}
			_ = formatter.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if formatter.IsJSON() {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result})
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

// buildTrace reads a run's cycles and steps from the journal.
func buildTrace(ctx context.Context, st *store.Store, opts *TraceOptions) (TraceResult, error) {
	var run store.Run
	var err error
	if opts.RunID != "" {
		run, err = st.ReadRun(ctx, opts.RunID)
	} else {
		run, err = st.LatestRun(ctx)
	}
	if err != nil {
		return TraceResult{}, err
	}

	cycles, err := st.ReadCycles(ctx, run.ID)
	if err != nil {
		return TraceResult{}, err
	}
	steps, err := st.ReadSteps(ctx, run.ID)
	if err != nil {
		return TraceResult{}, err
	}

	byCycle := make(map[int64][]TraceStep)
	for _, s := range steps {
		byCycle[s.Cycle] = append(byCycle[s.Cycle], TraceStep{
			Seq:       s.Seq,
			Kind:      s.Kind,
			Token:     s.Token,
			Waiter:    s.Waiter,
			ErrorKind: s.ErrorKind,
			Error:     s.ErrorMessage,
		})
	}

	result := TraceResult{RunID: run.ID, Name: run.Name, Cycles: []TraceCycle{}}
	for _, c := range cycles {
		if opts.Cycle > 0 && c.Cycle != opts.Cycle {
			continue
		}
		tc := TraceCycle{
			Cycle:        c.Cycle,
			ActionType:   c.ActionType,
			PayloadHash:  c.PayloadHash,
			Status:       c.Status,
			ErrorKind:    c.ErrorKind,
			ErrorMessage: c.ErrorMessage,
			Steps:        byCycle[c.Cycle],
		}
		if tc.Steps == nil {
			tc.Steps = []TraceStep{}
		}
		result.Cycles = append(result.Cycles, tc)

		result.Stats.Cycles++
		result.Stats.Steps += len(tc.Steps)
		switch c.Status {
		case store.StatusCompleted:
			result.Stats.Completed++
		case store.StatusFailed:
			result.Stats.Failed++
		default:
			result.Stats.Running++
		}
	}

	return result, nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Run: %s (%s)\n", result.RunID, result.Name)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Cycles ===")
	if len(result.Cycles) == 0 {
		fmt.Fprintln(w, "  (no cycles)")
	}
	for _, c := range result.Cycles {
		action := c.ActionType
		if action == "" {
			action = "-"
		}
		fmt.Fprintf(w, "  cycle %d %s %s", c.Cycle, action, c.Status)
		if c.ErrorKind != "" {
			fmt.Fprintf(w, " [%s]", c.ErrorKind)
		}
		fmt.Fprintln(w)
		if verbose {
			fmt.Fprintf(w, "    payload: %s\n", truncateID(c.PayloadHash))
			if c.ErrorMessage != "" {
				fmt.Fprintf(w, "    error: %s\n", c.ErrorMessage)
			}
		}
		for _, s := range c.Steps {
			fmt.Fprintf(w, "    [%d] %s %s", s.Seq, s.Kind, s.Token)
			if s.Waiter != "" {
				fmt.Fprintf(w, " <- %s", s.Waiter)
			}
			if s.Error != "" {
				fmt.Fprintf(w, " error=%s", s.Error)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Cycles:    %d\n", result.Stats.Cycles)
	fmt.Fprintf(w, "  Completed: %d\n", result.Stats.Completed)
	fmt.Fprintf(w, "  Failed:    %d\n", result.Stats.Failed)
	fmt.Fprintf(w, "  Steps:     %d\n", result.Stats.Steps)
}

// truncateID truncates a long hash or id for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
