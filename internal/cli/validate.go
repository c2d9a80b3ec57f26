package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/analyze"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	Path     string                 `json:"path"`
	Name     string                 `json:"name,omitempty"`
	Valid    bool                   `json:"valid"`
	Error    *CLIError              `json:"error,omitempty"`
	Warnings []analyze.CycleWarning `json:"warnings,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenario files without running them",
		Long: `Parse and validate scenario files (YAML or CUE).

Checks required fields, handler and filter references, step shapes and
assertions. Circular wait_for declarations are reported as warnings:
they are legal, and running the scenario shows the CircularDependency
failure.

Exit codes:
  0 - All files are valid
  1 - One or more files are invalid`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)

		fv := FileValidation{Path: path, Valid: true}
		scenario, loadErr := loadScenario(path)
		if loadErr != nil {
			fv.Valid = false
			fv.Error = &CLIError{Code: loadErr.Code, Message: loadErr.Message}
			result.Valid = false
		} else {
			fv.Name = scenario.Name
			fv.Warnings = analyze.Cycles(scenario.WaitGraph())
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeLoadFailed, Message: "validation failed"}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func outputValidateText(f *OutputFormatter, result ValidationResult) {
	w := f.Writer
	invalid := 0
	for _, fv := range result.Files {
		if !fv.Valid {
			invalid++
			fmt.Fprintf(w, "✗ %s\n", fv.Path)
			fmt.Fprintf(w, "  [%s] %s\n", fv.Error.Code, fv.Error.Message)
			continue
		}
		fmt.Fprintf(w, "✓ %s (%s)\n", fv.Path, fv.Name)
		for _, warning := range fv.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning.Message)
		}
	}

	if invalid > 0 {
		fmt.Fprintf(w, "\n%d of %d file(s) invalid\n", invalid, len(result.Files))
		return
	}
	fmt.Fprintln(w, "\nAll scenarios valid")
}
