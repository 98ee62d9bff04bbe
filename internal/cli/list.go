package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/ionstest/internal/expectation"
	"github.com/roach88/ionstest/internal/harness"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Tests   string
	Filters []string
}

// Expectation states reported by list.
const (
	ExpectationPresent   = "present"
	ExpectationMissing   = "missing"
	ExpectationMalformed = "malformed"
)

// ListEntry describes one discovered test case.
type ListEntry struct {
	harness.TestCase
	Expectation string `json:"expectation"`
	Stage       string `json:"stage,omitempty"`
	ExitCode    *int   `json:"exit_code,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tests and the state of their expectations",
		Long: `List the tests that run would select, with the stage and exit code each
expectation records. No toolchain stage is invoked.

Example:
  ionstest list
  ionstest list --filter 'err_*' --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTests(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Tests, "test", "t", "", "comma-separated test names (with or without extension)")
	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "only tests whose name matches this glob (repeatable)")

	return cmd
}

func listTests(opts *ListOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	tests, err := harness.Discover(cfg.TestsDir, harness.DiscoverOptions{
		SourceExt:      cfg.SourceExt,
		ExpectationExt: cfg.ExpectationExt,
		Names:          harness.SplitNames(opts.Tests),
		Patterns:       opts.Filters,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to discover tests", err)
	}

	entries := make([]ListEntry, 0, len(tests))
	for _, tc := range tests {
		entries = append(entries, describeTest(tc))
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return f.Success(entries)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(out, "No tests found in %s.\n", cfg.TestsDir)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TEST\tEXPECTATION\tSTAGE\tEXIT")
	for _, e := range entries {
		stageName, exit := "-", "-"
		if e.Stage != "" {
			stageName = e.Stage
		}
		if e.ExitCode != nil {
			exit = fmt.Sprint(*e.ExitCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Expectation, stageName, exit)
	}
	return tw.Flush()
}

func describeTest(tc harness.TestCase) ListEntry {
	entry := ListEntry{TestCase: tc}

	rec, err := expectation.Load(tc.ExpectationPath)
	switch {
	case err == nil:
		code := rec.ExitCode
		entry.Expectation = ExpectationPresent
		entry.Stage = rec.Stage.String()
		entry.ExitCode = &code
	case errors.Is(err, expectation.ErrMissing):
		entry.Expectation = ExpectationMissing
	default:
		entry.Expectation = ExpectationMalformed
		entry.Error = err.Error()
	}
	return entry
}
