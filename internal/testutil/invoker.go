package testutil

import (
	"context"
	"sync"

	"github.com/roach88/ionstest/internal/stage"
)

// Call records one stage invocation seen by a ScriptedInvoker.
type Call struct {
	Stage  stage.Stage
	Source string
}

// step is the scripted reply for one (source, stage) pair.
type step struct {
	exitCode int
	output   string
	err      error
}

// ScriptedInvoker is a stage.Invoker that replies from a script instead of
// running external tools.
//
// Stages without a scripted reply succeed with exit code 0 and empty output,
// so a test only scripts the stages it cares about. Every invocation is
// recorded and can be inspected with Calls.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ScriptedInvoker struct {
	mu     sync.Mutex
	script map[string]map[stage.Stage]step
	calls  []Call
}

// NewScriptedInvoker creates an invoker with an empty script.
func NewScriptedInvoker() *ScriptedInvoker {
	return &ScriptedInvoker{script: make(map[string]map[stage.Stage]step)}
}

// On scripts the exit code and output of stage s for source.
func (i *ScriptedInvoker) On(source string, s stage.Stage, exitCode int, output string) *ScriptedInvoker {
	i.set(source, s, step{exitCode: exitCode, output: output})
	return i
}

// Fail scripts stage s for source to fail with err, as if the tool could not
// be launched.
func (i *ScriptedInvoker) Fail(source string, s stage.Stage, err error) *ScriptedInvoker {
	i.set(source, s, step{err: err})
	return i
}

func (i *ScriptedInvoker) set(source string, s stage.Stage, st step) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.script[source] == nil {
		i.script[source] = make(map[stage.Stage]step)
	}
	i.script[source][s] = st
}

// Invoke implements stage.Invoker.
func (i *ScriptedInvoker) Invoke(ctx context.Context, s stage.Stage, source string) (stage.Outcome, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.calls = append(i.calls, Call{Stage: s, Source: source})

	if err := ctx.Err(); err != nil {
		return stage.Outcome{}, err
	}

	st := i.script[source][s]
	if st.err != nil {
		return stage.Outcome{}, st.err
	}
	return stage.Outcome{Stage: s, ExitCode: st.exitCode, Output: st.output}, nil
}

// Calls returns a copy of all recorded invocations in order.
func (i *ScriptedInvoker) Calls() []Call {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Call, len(i.calls))
	copy(out, i.calls)
	return out
}

// StagesFor returns the stages invoked for source, in invocation order.
func (i *ScriptedInvoker) StagesFor(source string) []stage.Stage {
	i.mu.Lock()
	defer i.mu.Unlock()
	stages := []stage.Stage{}
	for _, c := range i.calls {
		if c.Source == source {
			stages = append(stages, c.Stage)
		}
	}
	return stages
}

// ResetCalls clears the recorded invocations but keeps the script.
func (i *ScriptedInvoker) ResetCalls() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = nil
}
