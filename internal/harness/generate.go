package harness

import (
	"context"
	"fmt"

	"github.com/roach88/ionstest/internal/expectation"
	"github.com/roach88/ionstest/internal/stage"
)

// Generator records expectations from real pipeline runs.
// It never compares against an existing expectation.
type Generator struct {
	invoker stage.Invoker
	opts    options
}

// NewGenerator creates a generator that invokes stages through inv.
func NewGenerator(inv stage.Invoker, opts ...Option) *Generator {
	return &Generator{invoker: inv, opts: newOptions(opts)}
}

// Generate writes a fresh expectation for tc.
//
// An existing expectation is kept untouched unless force is set. Otherwise the
// full pipeline runs once and its terminal stage outcome is recorded. If the
// pipeline cannot be run, nothing is written and the outcome is Errored.
func (g *Generator) Generate(ctx context.Context, tc TestCase, force bool) Outcome {
	start := g.opts.now()
	out := g.generate(ctx, tc, force)
	out.Test = tc.Name
	out.Duration = g.opts.now().Sub(start)

	g.opts.logger.Debug("expectation generation finished",
		"test", tc.Name,
		"kind", out.Kind,
		"force", force,
	)
	return out
}

func (g *Generator) generate(ctx context.Context, tc TestCase, force bool) Outcome {
	exists, err := expectation.Exists(tc.ExpectationPath)
	if err != nil {
		return erroredOutcome(tc, ReasonExpectationIO, err)
	}
	if exists && !force {
		return Outcome{Kind: KindKept, Message: "expectation found"}
	}

	terminal, prior, err := Walk(ctx, g.invoker, tc.SourcePath)
	if err != nil {
		out := invokerFailure(tc, err)
		out.Prior = prior
		return out
	}

	rec := expectation.FromOutcome(terminal)
	if err := expectation.Save(tc.ExpectationPath, rec); err != nil {
		return erroredOutcome(tc, ReasonExpectationIO, err)
	}

	g.opts.logger.Info("generated expectation",
		"test", tc.Name,
		"path", tc.ExpectationPath,
		"stage", rec.Stage.String(),
		"exit_code", rec.ExitCode,
	)

	return Outcome{
		Kind:     KindGenerated,
		Message:  fmt.Sprintf("generated expectation (%s, exitcode=%d)", rec.Stage, rec.ExitCode),
		Observed: &terminal,
		Prior:    prior,
		Expected: &rec,
	}
}
