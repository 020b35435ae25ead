package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeflow/internal/harness"
)

// SimulateResult is the JSON payload of the simulate command.
type SimulateResult struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Trace    []harness.TraceEvent `json:"trace"`
	Errors   []string             `json:"errors,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <scenario-file>",
		Short: "Replay a propagation scenario",
		Long: `Execute a YAML scenario against a fresh engine and report the
notification trace and assertion outcomes. Runs are deterministic:
packet ids and notification order are identical on every run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runSimulate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading scenario", err)
	}

	formatter.VerboseLog("Running scenario %q (%d steps)", scenario.Name, len(scenario.Steps))

	result, err := harness.Run(scenario)
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "executing scenario", err)
	}

	out := SimulateResult{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Trace:    result.Trace,
		Errors:   result.Errors,
	}

	if formatter.Format == "json" {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		outputSimulateText(formatter, &out)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario failed with %d assertion error(s)", len(result.Errors)))
	}
	return nil
}

// ErrCodeScenario is the CLI error code for scenario load/run failures.
const ErrCodeScenario = "E301"

func outputSimulateText(formatter *OutputFormatter, result *SimulateResult) {
	w := formatter.Writer

	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	for _, ev := range result.Trace {
		fmt.Fprintf(w, "  [%d] %s %s at %s (%s)\n", ev.Seq, ev.Event, ev.Packet, ev.Node, ev.Kind)
	}

	if result.Pass {
		fmt.Fprintln(w, "✓ All assertions passed")
		return
	}

	fmt.Fprintln(w, "✗ Scenario failed")
	for _, msg := range result.Errors {
		fmt.Fprintln(w)
		fmt.Fprintln(w, msg)
	}
}
