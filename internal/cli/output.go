package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit statuses.
const (
	ExitSuccess      = 0 // nothing failed; skipped tests are allowed
	ExitFailure      = 1 // a test failed or errored, or the run was interrupted
	ExitCommandError = 2 // the harness could not run: configuration, variant, build, tests directory, flags
)

// ExitError carries the exit status a command should end with.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError for err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit status. Errors that are not an
// ExitError, such as flag parsing errors from cobra, are command errors.
func GetExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		return ExitCommandError
	}
}

// CLIResponse is the envelope of every JSON response.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failure in a JSON response.
type CLIError struct {
	Code    string `json:"code"` // E_TEST_FAILED, E_GENERATE_FAILED, E_COMMAND, E_INTERRUPTED
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or as a JSON CLIResponse.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool // text errors include their details
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

// Success writes data. Text output prints it with fmt.
func (f *OutputFormatter) Success(data any) error {
	if !f.isJSON() {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return f.Response(CLIResponse{Status: "ok", Data: data})
}

// Error writes a failure with a machine-readable code.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.Response(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	if _, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message); err != nil {
		return err
	}
	if f.Verbose && details != nil {
		_, err := fmt.Fprintf(f.Writer, "Details: %v\n", details)
		return err
	}
	return nil
}

// Response writes resp as indented JSON whatever the format.
func (f *OutputFormatter) Response(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
