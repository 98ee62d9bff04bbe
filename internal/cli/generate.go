package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ionstest/internal/harness"
	"github.com/roach88/ionstest/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	SelectionOptions
	Force bool // overwrite existing expectations
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Record expectations from the current toolchain",
		Long: `Pipeline every test program and record where it stopped, its exit
code and its output as the test's expectation.

Existing expectations are kept unless --force is given. Review generated
expectations before committing them: they record whatever the toolchain does
today, bugs included.

Example:
  ionstest generate
  ionstest generate -t add --force
  ionstest generate -a fasm --no-build`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateExpectations(opts, cmd)
		},
	}

	addSelectionFlags(cmd, &opts.SelectionOptions)
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "overwrite existing expectations")

	return cmd
}

func generateExpectations(opts *GenerateOptions, cmd *cobra.Command) error {
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

	rec, closeStore := s.openRecorder(ctx, &opts.SelectionOptions, store.ActionGenerate)
	defer closeStore()

	suite := harness.NewSuite(s.invoker, s.harnessOptions()...)
	outcomes := suite.Generate(ctx, s.tests, opts.Force, func(o harness.Outcome) {
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
		report.GenerateSummary(sum)
	} else {
		result := RunResult{
			Action:   store.ActionGenerate,
			Variant:  s.variant,
			Summary:  sum,
			Outcomes: outcomes,
		}
		if rec != nil {
			result.RunID = rec.Run().ID
		}
		if err := writeResult(opts.RootOptions, cmd, result, sum, "E_GENERATE_FAILED", "one or more expectations could not be generated"); err != nil {
			return err
		}
	}

	if !sum.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d errored", sum.Errored))
	}
	return nil
}
