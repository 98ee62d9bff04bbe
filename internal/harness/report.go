package harness

import (
	"fmt"
	"io"
	"strings"
)

// Report renders outcomes and summaries as human-readable text.
//
// Each test case is printed as its quoted name followed by an indented verdict
// and a blank line. Verbose reports additionally dump the expected and actual
// output of output mismatches.
type Report struct {
	w       io.Writer
	verbose bool
}

// NewReport creates a text report writing to w.
func NewReport(w io.Writer, verbose bool) *Report {
	return &Report{w: w, verbose: verbose}
}

// Outcome prints one test case outcome.
func (r *Report) Outcome(o Outcome) {
	fmt.Fprintf(r.w, "'%s':\n", o.Test)

	switch o.Kind {
	case KindPassed:
		fmt.Fprintln(r.w, "  Passed")
	case KindSkipped:
		fmt.Fprintln(r.w, "  No expectation found")
	case KindKept:
		fmt.Fprintln(r.w, "  Expectation found")
	case KindGenerated:
		if o.Expected != nil {
			fmt.Fprintf(r.w, "  Generated expectation (%s, exitcode=%d)\n", o.Expected.Stage, o.Expected.ExitCode)
		} else {
			fmt.Fprintln(r.w, "  Generated expectation")
		}
	case KindErrored:
		fmt.Fprintf(r.w, "  Error: %s\n", o.Message)
	case KindFailed:
		r.failure(o)
	}

	fmt.Fprintln(r.w)
}

func (r *Report) failure(o Outcome) {
	fmt.Fprintf(r.w, "  Failed: %s\n", o.Message)

	switch o.Reason {
	case ReasonStageMismatch:
		if o.Observed == nil {
			return
		}
		if !o.Observed.Stage.Terminal() {
			writeIndented(r.w, o.Observed.Output)
			return
		}
		for _, p := range o.Prior {
			fmt.Fprintf(r.w, "  %s:\n", p.Stage)
			writeIndented(r.w, p.Output)
		}
		if r.verbose {
			fmt.Fprintf(r.w, "  %s:\n", o.Observed.Stage)
			writeIndented(r.w, o.Observed.Output)
		}

	case ReasonExitCodeMismatch:
		if o.Observed != nil {
			writeIndented(r.w, o.Observed.Output)
		}

	case ReasonOutputMismatch:
		if !r.verbose || o.Observed == nil || o.Expected == nil {
			return
		}
		fmt.Fprintln(r.w, "  Expectation:")
		writeIndented(r.w, o.Expected.Output)
		fmt.Fprintln(r.w, "  Actual output:")
		writeIndented(r.w, o.Observed.Output)
	}
}

// Summary prints the totals of a run followed by the failed, errored and
// skipped test names in suite order.
func (r *Report) Summary(s Summary) {
	fmt.Fprintln(r.w, "Result:")
	fmt.Fprintf(r.w, "  Passed: %d\n", s.Passed)
	fmt.Fprintf(r.w, "  Skipped: %d\n", s.Skipped)
	fmt.Fprintf(r.w, "  Failed: %d\n", s.Failed)
	if s.Errored > 0 {
		fmt.Fprintf(r.w, "  Errored: %d\n", s.Errored)
	}
	r.names("Failed", s.FailedTests)
	r.names("Errored", s.ErroredTests)
	r.names("Skipped", s.SkippedTests)
}

// GenerateSummary prints the totals of a generate action.
func (r *Report) GenerateSummary(s Summary) {
	fmt.Fprintln(r.w, "Result:")
	fmt.Fprintf(r.w, "  Generated: %d\n", s.Generated)
	fmt.Fprintf(r.w, "  Kept: %d\n", s.Kept)
	if s.Errored > 0 {
		fmt.Fprintf(r.w, "  Errored: %d\n", s.Errored)
	}
	r.names("Errored", s.ErroredTests)
}

func (r *Report) names(title string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(r.w, "%s:\n", title)
	for _, n := range names {
		fmt.Fprintf(r.w, "  - %s\n", n)
	}
}

// writeIndented prints text with every line indented by four spaces.
func writeIndented(w io.Writer, text string) {
	if text == "" {
		fmt.Fprintln(w, "    (no output)")
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}
