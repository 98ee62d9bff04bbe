package store

import (
	"time"

	"github.com/roach88/ionstest/internal/harness"
	"github.com/roach88/ionstest/internal/stage"
)

// Action is the harness action a run performed.
type Action string

const (
	ActionRun      Action = "run"
	ActionGenerate Action = "generate"
)

// Run is one recorded invocation of the harness.
type Run struct {
	ID         string     `json:"id"`
	Action     Action     `json:"action"`
	Variant    string     `json:"variant"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
	Generated int `json:"generated"`
	Kept      int `json:"kept"`
}

// Finished reports whether the run completed. Interrupted runs never do.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}

// Result is the recorded outcome of one test case within a run.
type Result struct {
	RunID    string          `json:"run_id"`
	Seq      int64           `json:"seq"`
	Test     string          `json:"test"`
	Kind     harness.Kind    `json:"kind"`
	Reason   harness.Reason  `json:"reason,omitempty"`
	Message  string          `json:"message,omitempty"`
	Stage    string          `json:"stage,omitempty"`
	ExitCode int             `json:"exit_code"`
	Output   string          `json:"output,omitempty"`
	Duration time.Duration   `json:"duration_ns"`
	Prior    []stage.Outcome `json:"prior"`
}

// ResultFromOutcome converts a harness outcome into a result row.
// The terminal stage, exit code and output come from the observed outcome
// when there is one.
func ResultFromOutcome(runID string, seq int64, o harness.Outcome) Result {
	r := Result{
		RunID:    runID,
		Seq:      seq,
		Test:     o.Test,
		Kind:     o.Kind,
		Reason:   o.Reason,
		Message:  o.Message,
		Duration: o.Duration,
		Prior:    o.Prior,
	}
	if o.Observed != nil {
		r.Stage = o.Observed.Stage.String()
		r.ExitCode = o.Observed.ExitCode
		r.Output = o.Observed.Output
	}
	if r.Prior == nil {
		r.Prior = []stage.Outcome{}
	}
	return r
}
