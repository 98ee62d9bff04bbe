package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ionstest/internal/harness"
	"github.com/roach88/ionstest/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	SelectionOptions
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Action   store.Action      `json:"action"`
	Variant  string            `json:"variant"`
	RunID    string            `json:"run_id,omitempty"`
	Summary  harness.Summary   `json:"summary"`
	Outcomes []harness.Outcome `json:"outcomes"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run tests against their expectations",
		Long: `Build the toolchain, then pipeline every test program through
transcription, compilation and execution and compare the result against its
recorded expectation. Tests without an expectation are skipped.

Exit status is 0 when no test failed, 1 when a test failed or errored and 2
when the harness could not run.

Example:
  ionstest run
  ionstest run -a fasm --no-build
  ionstest run -t add,loop.ions
  ionstest run --filter 'struct_*' --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, cmd)
		},
	}

	addSelectionFlags(cmd, &opts.SelectionOptions)

	return cmd
}

func runTests(opts *RunOptions, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions, &opts.SelectionOptions, cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd, s.logger)
	defer cancel()

	if err := s.build(ctx, &opts.SelectionOptions, cmd); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	text := opts.Format != "json"
	report := harness.NewReport(out, opts.Verbose)

	if len(s.tests) == 0 && text {
		fmt.Fprintln(out, describeSelection(&opts.SelectionOptions, s.cfg.TestsDir))
	}

	rec, closeStore := s.openRecorder(ctx, &opts.SelectionOptions, store.ActionRun)
	defer closeStore()

	suite := harness.NewSuite(s.invoker, s.harnessOptions()...)
	outcomes := suite.Run(ctx, s.tests, func(o harness.Outcome) {
		if text {
			report.Outcome(o)
		}
		if rec != nil {
			rec.Observe(ctx, o)
		}
	})

	if err := interrupted(ctx); err != nil {
		return err
	}

	sum := harness.Summarize(outcomes)
	s.finishRecorder(rec, sum)

	if text {
		report.Summary(sum)
	} else {
		result := RunResult{
			Action:   store.ActionRun,
			Variant:  s.variant,
			Summary:  sum,
			Outcomes: outcomes,
		}
		if rec != nil {
			result.RunID = rec.Run().ID
		}
		if err := writeResult(opts.RootOptions, cmd, result, sum, "E_TEST_FAILED", "one or more tests failed"); err != nil {
			return err
		}
	}

	if !sum.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d failed, %d errored", sum.Failed, sum.Errored))
	}
	return nil
}

// FailureDetails lists the tests behind an error response.
type FailureDetails struct {
	FailedTests  []string `json:"failed_tests"`
	ErroredTests []string `json:"errored_tests"`
}

// writeResult prints a JSON response whose status reflects sum.
func writeResult(opts *RootOptions, cmd *cobra.Command, data any, sum harness.Summary, code, message string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if sum.OK() {
		return f.Success(data)
	}
	return f.Response(CLIResponse{
		Status: "error",
		Data:   data,
		Error: &CLIError{
			Code:    code,
			Message: message,
			Details: FailureDetails{FailedTests: sum.FailedTests, ErroredTests: sum.ErroredTests},
		},
	})
}
