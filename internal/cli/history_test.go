package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ionstest/internal/harness"
	"github.com/roach88/ionstest/internal/stage"
	"github.com/roach88/ionstest/internal/store"
	"github.com/roach88/ionstest/internal/testutil"
)

// recordRuns runs the suite twice: once passing, once with add.ions failing.
func recordRuns(t *testing.T, f *fixture) (passing, failing string) {
	t.Helper()

	add := f.addTest(t, "add.ions", "print 1 + 2")
	f.expect(t, "add.ions", stage.Execution, 0, "3\n")

	ids := make([]string, 0, 2)
	for _, output := range []string{"3\n", "4\n"} {
		inv := testutil.NewScriptedInvoker().On(add, stage.Execution, 0, output)
		stdout, _, _ := runWith(t, f, "json", SelectionOptions{Invoker: inv})

		var resp struct {
			Data RunResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
		require.NotEmpty(t, resp.Data.RunID)
		ids = append(ids, resp.Data.RunID)
	}
	return ids[0], ids[1]
}

func TestHistory_ListRuns(t *testing.T) {
	f := newFixture(t, "")
	passing, failing := recordRuns(t, f)

	stdout, _, err := execute("--config", f.configPath, "history")
	require.NoError(t, err)

	lines := splitLines(stdout)
	require.Len(t, lines, 3)
	assert.Regexp(t, `^ID\s+ACTION\s+VARIANT\s+STARTED`, lines[0])
	assert.Contains(t, lines[1], failing)
	assert.Contains(t, lines[2], passing)
	assert.Contains(t, lines[1], "run")
	assert.Contains(t, lines[1], "nasm")
}

func TestHistory_Limit(t *testing.T) {
	f := newFixture(t, "")
	_, failing := recordRuns(t, f)

	stdout, _, err := execute("--config", f.configPath, "--format", "json", "history", "--limit", "1")
	require.NoError(t, err)

	var resp struct {
		Data []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, failing, resp.Data[0].ID)
	assert.Equal(t, 1, resp.Data[0].Failed)
}

func TestHistory_Run(t *testing.T) {
	f := newFixture(t, "")
	_, failing := recordRuns(t, f)

	stdout, _, err := execute("--config", f.configPath, "--format", "json", "history", "--run", failing)
	require.NoError(t, err)

	var resp struct {
		Data RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, failing, resp.Data.Run.ID)
	require.Len(t, resp.Data.Results, 1)

	r := resp.Data.Results[0]
	assert.Equal(t, "add.ions", r.Test)
	assert.Equal(t, harness.KindFailed, r.Kind)
	assert.Equal(t, harness.ReasonOutputMismatch, r.Reason)
	assert.Equal(t, "4\n", r.Output)
	require.Len(t, r.Prior, 2)
	assert.Equal(t, stage.Transcription, r.Prior[0].Stage)
}

func TestHistory_RunText(t *testing.T) {
	f := newFixture(t, "")
	_, failing := recordRuns(t, f)

	stdout, _, err := execute("--config", f.configPath, "history", "--run", failing)
	require.NoError(t, err)
	assert.Contains(t, stdout, failing)
	assert.Regexp(t, `(?m)^add\.ions\s+failed\s+Execution\s+0\s+`, stdout)
}

func TestHistory_UnknownRun(t *testing.T) {
	f := newFixture(t, "")
	recordRuns(t, f)

	_, _, err := execute("--config", f.configPath, "history", "--run", "zzzz")
	requireExitCode(t, err, ExitCommandError)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestHistory_Test(t *testing.T) {
	f := newFixture(t, "")
	passing, failing := recordRuns(t, f)

	stdout, _, err := execute("--config", f.configPath, "--format", "json", "history", "--test", "add.ions")
	require.NoError(t, err)

	var resp struct {
		Data []store.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, failing, resp.Data[0].RunID)
	assert.Equal(t, harness.KindFailed, resp.Data[0].Kind)
	assert.Equal(t, passing, resp.Data[1].RunID)
	assert.Equal(t, harness.KindPassed, resp.Data[1].Kind)
}

func TestHistory_Empty(t *testing.T) {
	f := newFixture(t, "")

	stdout, _, err := execute("--config", f.configPath, "history")
	require.NoError(t, err)
	assert.Equal(t, "No recorded runs.\n", stdout)

	stdout, _, err = execute("--config", f.configPath, "history", "--test", "add.ions")
	require.NoError(t, err)
	assert.Equal(t, "No recorded results for add.ions.\n", stdout)
}

func TestHistory_RunAndTestExclusive(t *testing.T) {
	f := newFixture(t, "")

	_, _, err := execute("--config", f.configPath, "history", "--run", "abc", "--test", "add.ions")
	requireExitCode(t, err, ExitCommandError)
}
