package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/ionstest/internal/diff"
	"github.com/roach88/ionstest/internal/expectation"
	"github.com/roach88/ionstest/internal/stage"
)

// errNoTerminalStage is returned by Walk if the stage list has no terminal stage.
var errNoTerminalStage = errors.New("pipeline ended without a terminal stage")

// Walk runs the pipeline for source and returns the terminal stage outcome
// together with the outcomes of the stages that passed before it.
//
// States advance Transcribing → Compiling → Executing. A non-zero exit on a
// non-terminal stage ends the walk at that stage. An invoker error ends the
// walk immediately and is returned wrapped with the stage name.
func Walk(ctx context.Context, inv stage.Invoker, source string) (stage.Outcome, []stage.Outcome, error) {
	prior := []stage.Outcome{}
	for _, s := range stage.Stages() {
		out, err := inv.Invoke(ctx, s, source)
		if err != nil {
			return stage.Outcome{}, prior, fmt.Errorf("%s: %w", strings.ToLower(s.String()), err)
		}
		out.Stage = s

		if s.Terminal() || !out.Passed() {
			return out, prior, nil
		}
		prior = append(prior, out)
	}
	return stage.Outcome{}, prior, errNoTerminalStage
}

// Option configures a Runner, Generator or Suite.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. By default logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces time.Now for duration measurement.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Runner checks test cases against their recorded expectations.
type Runner struct {
	invoker stage.Invoker
	opts    options
}

// NewRunner creates a runner that invokes stages through inv.
func NewRunner(inv stage.Invoker, opts ...Option) *Runner {
	return &Runner{invoker: inv, opts: newOptions(opts)}
}

// Check loads the expectation of tc and runs it.
//
// A missing expectation yields Skipped. A malformed or unreadable one yields
// Errored without invoking any stage.
func (r *Runner) Check(ctx context.Context, tc TestCase) Outcome {
	exp, err := expectation.Load(tc.ExpectationPath)
	if err != nil {
		if errors.Is(err, expectation.ErrMissing) {
			return r.Run(ctx, tc, nil)
		}
		reason := ReasonExpectationIO
		if errors.Is(err, expectation.ErrMalformed) {
			reason = ReasonMalformedExpectation
		}
		r.opts.logger.Warn("cannot use expectation", "test", tc.Name, "error", err)
		return erroredOutcome(tc, reason, err)
	}
	return r.Run(ctx, tc, exp)
}

// Run drives tc through the pipeline and classifies the result against exp.
// A nil exp means no expectation exists: the outcome is Skipped and no stage
// is invoked.
func (r *Runner) Run(ctx context.Context, tc TestCase, exp *expectation.Record) Outcome {
	start := r.opts.now()
	out := r.run(ctx, tc, exp)
	out.Test = tc.Name
	out.Duration = r.opts.now().Sub(start)

	r.opts.logger.Debug("test case finished",
		"test", tc.Name,
		"kind", out.Kind,
		"reason", out.Reason,
		"duration", out.Duration,
	)
	return out
}

func (r *Runner) run(ctx context.Context, tc TestCase, exp *expectation.Record) Outcome {
	if exp == nil {
		return Outcome{
			Kind:    KindSkipped,
			Reason:  ReasonExpectationMissing,
			Message: expectation.ErrMissing.Error(),
		}
	}

	terminal, prior, err := Walk(ctx, r.invoker, tc.SourcePath)
	if err != nil {
		out := invokerFailure(tc, err)
		out.Prior = prior
		out.Expected = exp
		return out
	}

	return Compare(terminal, prior, *exp)
}

// Compare classifies an observed pipeline run against an expectation.
// Checks run in order: terminal stage, exit code, output. The first failing
// check decides the outcome; later checks are not evaluated.
func Compare(terminal stage.Outcome, prior []stage.Outcome, exp expectation.Record) Outcome {
	out := Outcome{
		Observed: &terminal,
		Prior:    prior,
		Expected: &exp,
	}

	if terminal.Stage != exp.Stage {
		out.Kind = KindFailed
		out.Reason = ReasonStageMismatch
		if terminal.Stage.Terminal() {
			out.Message = fmt.Sprintf("should have failed before execution (expected %s failure)", exp.Stage)
		} else {
			out.Message = fmt.Sprintf("unexpected %s failure (exitcode=%d)", strings.ToLower(terminal.Stage.String()), terminal.ExitCode)
		}
		return out
	}

	if terminal.ExitCode != exp.ExitCode {
		out.Kind = KindFailed
		out.Reason = ReasonExitCodeMismatch
		out.Message = fmt.Sprintf("%s exit code mismatch: exited with code %d instead of %d",
			strings.ToLower(terminal.Stage.String()), terminal.ExitCode, exp.ExitCode)
		return out
	}

	want := stage.NormalizeText(exp.Output)
	got := stage.NormalizeText(terminal.Output)
	d, differ := diff.FirstDivergence(want, got)
	if !differ {
		out.Kind = KindPassed
		return out
	}

	out.Kind = KindFailed
	out.Reason = ReasonOutputMismatch
	out.Message = "output mismatch: " + d.String()
	out.Divergence = &d
	return out
}

// invokerFailure classifies an error from Walk.
func invokerFailure(tc TestCase, err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return erroredOutcome(tc, ReasonStageTimeout, err)
	}
	return erroredOutcome(tc, ReasonInvokerFailure, err)
}

func erroredOutcome(tc TestCase, reason Reason, err error) Outcome {
	return Outcome{
		Test:    tc.Name,
		Kind:    KindErrored,
		Reason:  reason,
		Message: err.Error(),
		Err:     err,
	}
}
