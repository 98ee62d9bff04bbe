// Package stage defines the three pipeline stages a test case passes through
// and the outcome of invoking one of them.
//
// The stages are totally ordered. A pipeline run always attempts them in
// order and stops at the first stage that exits non-zero; Execution is the
// last stage and is terminal once reached.
package stage

import (
	"context"
	"fmt"
	"time"
)

// Stage identifies one step of the external pipeline.
type Stage int

const (
	// Transcription converts source text into the intermediate form.
	Transcription Stage = iota + 1
	// Compilation converts the intermediate form into a native artifact.
	Compilation
	// Execution runs the native artifact.
	Execution
)

var stageNames = map[Stage]string{
	Transcription: "Transcription",
	Compilation:   "Compilation",
	Execution:     "Execution",
}

// String returns the name used in expectation file headers.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Valid reports whether s is one of the three pipeline stages.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

// Terminal reports whether reaching s always ends the pipeline.
func (s Stage) Terminal() bool {
	return s == Execution
}

// MarshalText implements encoding.TextMarshaler so stages serialize by name.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid stage %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parse returns the stage with the given header name.
// Matching is exact: "transcription" is not a stage name.
func Parse(name string) (Stage, error) {
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// Stages returns all stages in pipeline order.
func Stages() []Stage {
	return []Stage{Transcription, Compilation, Execution}
}

// Outcome is the observed result of running one stage.
type Outcome struct {
	Stage    Stage         `json:"stage"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"-"`
}

// Passed reports whether the outcome lets the pipeline advance.
func (o Outcome) Passed() bool {
	return o.ExitCode == 0
}

// Invoker runs a single stage for a source file.
//
// Transcription receives the source path; Compilation and Execution work on
// artifacts left behind by the previous stage and normally ignore it.
// A non-zero exit is reported through Outcome.ExitCode, not as an error.
// The error return is reserved for failures to run the stage at all.
type Invoker interface {
	Invoke(ctx context.Context, s Stage, source string) (Outcome, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, s Stage, source string) (Outcome, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, s Stage, source string) (Outcome, error) {
	return f(ctx, s, source)
}
