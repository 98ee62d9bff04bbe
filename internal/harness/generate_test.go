package harness

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ionstest/internal/expectation"
	"github.com/roach88/ionstest/internal/stage"
	"github.com/roach88/ionstest/internal/testutil"
)

func TestGenerate_WritesTerminalStage(t *testing.T) {
	testCases := []struct {
		name   string
		script func(inv *testutil.ScriptedInvoker, src string)
		want   string
	}{
		{
			name: "transcription failure",
			script: func(inv *testutil.ScriptedInvoker, src string) {
				inv.On(src, stage.Transcription, 2, "bad token\n")
			},
			want: "--->Transcription:exitcode=2\nbad token\n",
		},
		{
			name: "compilation failure",
			script: func(inv *testutil.ScriptedInvoker, src string) {
				inv.On(src, stage.Transcription, 0, "Generated assembly with 3 lines.\n")
				inv.On(src, stage.Compilation, 1, "error: undefined\n")
			},
			want: "--->Compilation:exitcode=1\nerror: undefined\n",
		},
		{
			name: "execution",
			script: func(inv *testutil.ScriptedInvoker, src string) {
				inv.On(src, stage.Execution, 3, "1\n2\n")
			},
			want: "--->Execution:exitcode=3\n1\n2\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			test := createTestCase(t, t.TempDir(), "case.ions")
			inv := testutil.NewScriptedInvoker()
			tc.script(inv, test.SourcePath)

			out := NewGenerator(inv).Generate(context.Background(), test, false)
			assert.Equal(t, KindGenerated, out.Kind)
			require.NotNil(t, out.Expected)

			data, err := os.ReadFile(test.ExpectationPath)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(data))
		})
	}
}

func TestGenerate_KeepsExistingWithoutForce(t *testing.T) {
	test := createTestCase(t, t.TempDir(), "old.ions")
	original := "--->Execution:exitcode=0\nold output\n"
	writeExpectation(t, test, original)

	inv := testutil.NewScriptedInvoker().On(test.SourcePath, stage.Execution, 0, "new output\n")
	out := NewGenerator(inv).Generate(context.Background(), test, false)

	assert.Equal(t, KindKept, out.Kind)
	assert.Empty(t, inv.Calls())

	data, err := os.ReadFile(test.ExpectationPath)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestGenerate_ForceOverwrites(t *testing.T) {
	test := createTestCase(t, t.TempDir(), "old.ions")
	writeExpectation(t, test, "not even a valid header\n")

	inv := testutil.NewScriptedInvoker().On(test.SourcePath, stage.Execution, 0, "new output\n")
	out := NewGenerator(inv).Generate(context.Background(), test, true)

	assert.Equal(t, KindGenerated, out.Kind)
	data, err := os.ReadFile(test.ExpectationPath)
	require.NoError(t, err)
	assert.Equal(t, "--->Execution:exitcode=0\nnew output\n", string(data))
}

func TestGenerate_InvokerFailureWritesNothing(t *testing.T) {
	test := createTestCase(t, t.TempDir(), "a.ions")
	inv := testutil.NewScriptedInvoker().Fail(test.SourcePath, stage.Compilation, errors.New("wsl missing"))

	out := NewGenerator(inv).Generate(context.Background(), test, false)
	assert.Equal(t, KindErrored, out.Kind)
	assert.Equal(t, ReasonInvokerFailure, out.Reason)

	_, err := os.Stat(test.ExpectationPath)
	assert.True(t, os.IsNotExist(err))
}

func TestGenerate_ForcedFailureKeepsPreviousFile(t *testing.T) {
	test := createTestCase(t, t.TempDir(), "a.ions")
	original := "--->Execution:exitcode=0\nkeep me\n"
	writeExpectation(t, test, original)

	inv := testutil.NewScriptedInvoker().Fail(test.SourcePath, stage.Transcription, errors.New("dotnet missing"))
	out := NewGenerator(inv).Generate(context.Background(), test, true)
	assert.Equal(t, KindErrored, out.Kind)

	data, err := os.ReadFile(test.ExpectationPath)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

// Generating and then immediately running against the fresh expectation
// passes whenever the pipeline is deterministic.
func TestGenerateThenRunPasses(t *testing.T) {
	scripts := map[string]func(inv *testutil.ScriptedInvoker, src string){
		"transcription.ions": func(inv *testutil.ScriptedInvoker, src string) {
			inv.On(src, stage.Transcription, 2, "bad token\r\n")
		},
		"compilation.ions": func(inv *testutil.ScriptedInvoker, src string) {
			inv.On(src, stage.Compilation, 1, "")
		},
		"execution.ions": func(inv *testutil.ScriptedInvoker, src string) {
			inv.On(src, stage.Execution, 7, "a\nb")
		},
	}

	dir := t.TempDir()
	inv := testutil.NewScriptedInvoker()
	var tests []TestCase
	for name, script := range scripts {
		tc := createTestCase(t, dir, name)
		script(inv, tc.SourcePath)
		tests = append(tests, tc)
	}

	suite := NewSuite(inv)
	generated := Summarize(suite.Generate(context.Background(), tests, false, nil))
	assert.Equal(t, len(tests), generated.Generated)

	outcomes := suite.Run(context.Background(), tests, nil)
	for _, o := range outcomes {
		assert.Equal(t, KindPassed, o.Kind, "%s: %s", o.Test, o.Message)
	}
}

func TestGenerate_RecordMatchesObserved(t *testing.T) {
	test := createTestCase(t, t.TempDir(), "a.ions")
	inv := testutil.NewScriptedInvoker().On(test.SourcePath, stage.Execution, 0, "3\n")

	out := NewGenerator(inv).Generate(context.Background(), test, false)
	require.NotNil(t, out.Observed)
	require.NotNil(t, out.Expected)
	assert.Equal(t, expectation.FromOutcome(*out.Observed), *out.Expected)
	assert.Equal(t, "generated expectation (Execution, exitcode=0)", out.Message)
}
