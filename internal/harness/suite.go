package harness

import (
	"context"

	"github.com/roach88/ionstest/internal/stage"
)

// Observer receives each outcome as soon as its test case is finished.
type Observer func(Outcome)

// Suite runs test cases one at a time, in the order given.
// A test case is fully pipelined before the next one starts.
type Suite struct {
	runner    *Runner
	generator *Generator
	opts      options
}

// NewSuite creates a suite whose runner and generator share inv and opts.
func NewSuite(inv stage.Invoker, opts ...Option) *Suite {
	return &Suite{
		runner:    NewRunner(inv, opts...),
		generator: NewGenerator(inv, opts...),
		opts:      newOptions(opts),
	}
}

// Run checks every test case against its expectation.
func (s *Suite) Run(ctx context.Context, tests []TestCase, observe Observer) []Outcome {
	s.opts.logger.Info("running suite", "tests", len(tests))
	return s.each(tests, observe, func(tc TestCase) Outcome {
		return s.runner.Check(ctx, tc)
	})
}

// Generate records expectations for every test case.
func (s *Suite) Generate(ctx context.Context, tests []TestCase, force bool, observe Observer) []Outcome {
	s.opts.logger.Info("generating expectations", "tests", len(tests), "force", force)
	return s.each(tests, observe, func(tc TestCase) Outcome {
		return s.generator.Generate(ctx, tc, force)
	})
}

func (s *Suite) each(tests []TestCase, observe Observer, fn func(TestCase) Outcome) []Outcome {
	outcomes := make([]Outcome, 0, len(tests))
	for _, tc := range tests {
		out := fn(tc)
		outcomes = append(outcomes, out)
		if observe != nil {
			observe(out)
		}
	}
	return outcomes
}
