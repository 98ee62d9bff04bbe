package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ionstest/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string // show the results of one run (ID prefix)
	Test     string // show one test across runs
}

// RunDetail is the JSON payload of history --run.
type RunDetail struct {
	Run     store.Run      `json:"run"`
	Results []store.Result `json:"results"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show the runs recorded in the history database.

Without flags the most recent runs are listed. --run shows every result of
one run, identified by any unique prefix of its ID. --test shows how one test
fared across runs.

Example:
  ionstest history
  ionstest history --run 0192f3
  ionstest history --test add.ions --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "run history database (default from config)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "maximum number of entries (0 for all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the results of the run with this ID prefix")
	cmd.Flags().StringVar(&opts.Test, "test", "", "show the results of one test across runs")
	cmd.MarkFlagsMutuallyExclusive("run", "test")

	return cmd
}

func showHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	path := opts.Database
	if path == "" {
		cfg, err := loadConfig(opts.RootOptions, cmd)
		if err != nil {
			return err
		}
		path = cfg.History
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no history database configured")
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	out := cmd.OutOrStdout()

	switch {
	case opts.RunID != "":
		run, err := st.FindRun(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find run", err)
		}
		results, err := st.ReadResults(ctx, run.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read results", err)
		}
		if opts.Format == "json" {
			return f.Success(RunDetail{Run: run, Results: results})
		}
		if err := writeRuns(out, []store.Run{run}); err != nil {
			return err
		}
		fmt.Fprintln(out)
		return writeResults(out, results, false)

	case opts.Test != "":
		results, err := st.TestHistory(ctx, opts.Test, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read test history", err)
		}
		if opts.Format == "json" {
			return f.Success(results)
		}
		if len(results) == 0 {
			fmt.Fprintf(out, "No recorded results for %s.\n", opts.Test)
			return nil
		}
		return writeResults(out, results, true)

	default:
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if opts.Format == "json" {
			return f.Success(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No recorded runs.")
			return nil
		}
		return writeRuns(out, runs)
	}
}

func writeRuns(w io.Writer, runs []store.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTION\tVARIANT\tSTARTED\tPASSED\tFAILED\tSKIPPED\tERRORED\tGENERATED\tKEPT")
	for _, r := range runs {
		started := r.StartedAt.Local().Format(time.DateTime)
		if !r.Finished() {
			started += " (interrupted)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.Action, r.Variant, started,
			r.Passed, r.Failed, r.Skipped, r.Errored, r.Generated, r.Kept)
	}
	return tw.Flush()
}

func writeResults(w io.Writer, results []store.Result, withRun bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if withRun {
		fmt.Fprint(tw, "RUN\t")
	}
	fmt.Fprintln(tw, "TEST\tKIND\tSTAGE\tEXIT\tDURATION\tMESSAGE")
	for _, r := range results {
		if withRun {
			fmt.Fprintf(tw, "%s\t", r.RunID)
		}
		stageName := r.Stage
		if stageName == "" {
			stageName = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Test, r.Kind, stageName, r.ExitCode, r.Duration.Round(time.Millisecond), r.Message)
	}
	return tw.Flush()
}
