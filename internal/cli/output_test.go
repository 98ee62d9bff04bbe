package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]int{"passed": 3}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E_CONFIG", "invalid configuration", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CONFIG", resp.Error.Code)
	assert.Equal(t, "invalid configuration", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E_TEST_FAILED", "one or more tests failed", []string{"add.ions", "loop.ions"})
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Details []string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, []string{"add.ions", "loop.ions"}, resp.Error.Details)
}

func TestOutputFormatter_Response(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Response(CLIResponse{
		Status: "error",
		Data:   map[string]int{"failed": 1},
		Error:  &CLIError{Code: "E_TEST_FAILED", Message: "one or more tests failed"},
	})
	require.NoError(t, err)

	// Response always writes JSON, carrying data and error together.
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("All tests passed")
	require.NoError(t, err)
	assert.Equal(t, "All tests passed\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Error("E_BUILD", "build step failed", "exit code 1")
	require.NoError(t, err)
	assert.Equal(t, "Error [E_BUILD]: build step failed\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("E_BUILD", "build step failed", "exit code 1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E_BUILD]: build step failed")
	assert.Contains(t, buf.String(), "Details: exit code 1")
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"test failure", NewExitError(ExitFailure, "1 failed, 0 errored"), ExitFailure},
		{"command error", WrapExitError(ExitCommandError, "invalid configuration", errors.New("bad key")), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("run: %w", NewExitError(ExitFailure, "interrupted")), ExitFailure},
		{"plain error", errors.New(`unknown flag: --nope`), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := WrapExitError(ExitCommandError, "build step failed", cause)

	assert.Equal(t, "build step failed: exit status 1", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "interrupted", NewExitError(ExitFailure, "interrupted").Error())
}

func TestNewLogger_NonTerminal(t *testing.T) {
	buf := &bytes.Buffer{}

	logger := newLogger(buf, false)
	logger.Debug("hidden")
	logger.Warn("run history disabled", "path", "history.db")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "path=history.db")

	buf.Reset()
	logger = newLogger(buf, true)
	logger.Debug("discovered tests", "count", 2)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "count=2")
}
