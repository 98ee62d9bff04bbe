package harness

import (
	"time"

	"github.com/roach88/ionstest/internal/diff"
	"github.com/roach88/ionstest/internal/expectation"
	"github.com/roach88/ionstest/internal/stage"
)

// Kind classifies the outcome of one test case.
type Kind string

const (
	KindPassed    Kind = "passed"
	KindFailed    Kind = "failed"
	KindSkipped   Kind = "skipped"
	KindGenerated Kind = "generated"
	KindKept      Kind = "kept"
	KindErrored   Kind = "errored"
)

// Reason explains a non-passing outcome.
type Reason string

const (
	// ReasonExpectationMissing: no expectation file exists (Skipped).
	ReasonExpectationMissing Reason = "expectation_missing"

	// ReasonStageMismatch: the pipeline stopped at a different stage than recorded (Failed).
	ReasonStageMismatch Reason = "stage_mismatch"

	// ReasonExitCodeMismatch: same stage, different exit code (Failed).
	ReasonExitCodeMismatch Reason = "exit_code_mismatch"

	// ReasonOutputMismatch: same stage and exit code, different output (Failed).
	ReasonOutputMismatch Reason = "output_mismatch"

	// ReasonMalformedExpectation: the expectation header does not parse (Errored).
	ReasonMalformedExpectation Reason = "malformed_expectation"

	// ReasonExpectationIO: the expectation file could not be read or written (Errored).
	ReasonExpectationIO Reason = "expectation_io"

	// ReasonInvokerFailure: a stage tool could not be run at all (Errored).
	ReasonInvokerFailure Reason = "invoker_failure"

	// ReasonStageTimeout: a stage tool did not finish in time (Errored).
	ReasonStageTimeout Reason = "stage_timeout"
)

// Outcome is the classified result of one test case.
type Outcome struct {
	// Test is the test case name.
	Test string `json:"test"`

	Kind   Kind   `json:"kind"`
	Reason Reason `json:"reason,omitempty"`

	// Message is a human-readable diagnostic. Empty for Passed.
	Message string `json:"message,omitempty"`

	// Observed is the terminal stage outcome, when the pipeline ran.
	Observed *stage.Outcome `json:"observed,omitempty"`

	// Prior holds the outcomes of the stages that passed before the terminal one.
	Prior []stage.Outcome `json:"prior,omitempty"`

	// Expected is the expectation compared against (run) or written (generate).
	Expected *expectation.Record `json:"expected,omitempty"`

	// Divergence locates the first output difference for ReasonOutputMismatch.
	Divergence *diff.Divergence `json:"divergence,omitempty"`

	// Err is the underlying error for Errored outcomes.
	Err error `json:"-"`

	Duration time.Duration `json:"duration_ns"`
}

// Passed reports whether the outcome counts as a pass.
func (o Outcome) Passed() bool {
	return o.Kind == KindPassed
}
