package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reactor/internal/harness"
)

// ValidatedScenario is the validation outcome for one file.
type ValidatedScenario struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                `json:"valid"`
	Scenarios []ValidatedScenario `json:"scenarios"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenarios without running them",
		Long: `Parse and validate scenario files without running them.

Checks syntax, unknown fields, data kind names, cross references between
steps, reactions and entities, and builds every reaction so overlapping
parameter access (CONFLICTING_ACCESS) is reported.

Exit codes:
  0 - All scenarios are valid
  1 - One or more scenarios are invalid`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{
		Valid:     true,
		Scenarios: make([]ValidatedScenario, 0, len(paths)),
	}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		entry := ValidatedScenario{Path: path, Valid: true}
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			entry.Valid = false
			entry.Error = err.Error()
			result.Valid = false
		} else {
			entry.Name = scenario.Name
		}
		result.Scenarios = append(result.Scenarios, entry)
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_INVALID_SCENARIO",
				Message: "one or more scenarios are invalid",
			}
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}
	} else {
		for _, s := range result.Scenarios {
			if s.Valid {
				fmt.Fprintf(formatter.Writer, "%s %s (%s)\n", statusMark(true), s.Name, s.Path)
				continue
			}
			fmt.Fprintf(formatter.Writer, "%s %s\n", statusMark(false), s.Path)
			fmt.Fprintf(formatter.Writer, "  %s\n", s.Error)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
