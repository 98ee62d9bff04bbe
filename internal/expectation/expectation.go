// Package expectation reads and writes expectation files.
//
// An expectation file records which stage terminated a test case's pipeline
// run, with what exit code, and what output it produced:
//
//	--->Transcription:exitcode=2
//	bad token
//
// The first line is the header. Everything after the first newline is the
// recorded output, kept verbatim (it may be empty or span several lines).
package expectation

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/roach88/ionstest/internal/stage"
)

// HeaderPrefix starts every expectation file.
const HeaderPrefix = "--->"

// ErrMalformed is matched by every header parse failure.
var ErrMalformed = errors.New("malformed expectation")

var headerPattern = regexp.MustCompile(`^--->([A-Za-z]+):exitcode=([0-9]+)$`)

// Record is the persisted contract for one test case.
type Record struct {
	// Stage is the stage whose outcome is authoritative. Transcription and
	// Compilation mean the pipeline stopped there with a non-zero exit.
	Stage stage.Stage `json:"stage"`

	// ExitCode is the exit code the terminal stage must produce.
	ExitCode int `json:"exit_code"`

	// Output is the expected output of the terminal stage.
	Output string `json:"output"`
}

// FromOutcome builds the record that an observed terminal outcome satisfies.
func FromOutcome(o stage.Outcome) Record {
	return Record{Stage: o.Stage, ExitCode: o.ExitCode, Output: o.Output}
}

// Header returns the header line without its trailing newline.
func (r Record) Header() string {
	return fmt.Sprintf("%s%s:exitcode=%d", HeaderPrefix, r.Stage, r.ExitCode)
}

// MalformedError describes an expectation header that could not be parsed.
type MalformedError struct {
	Header string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: %s: %q", ErrMalformed, e.Reason, e.Header)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}

// Parse decodes an expectation file.
func Parse(data []byte) (Record, error) {
	header, body, _ := bytes.Cut(data, []byte("\n"))
	header = bytes.TrimSuffix(header, []byte("\r"))

	m := headerPattern.FindSubmatch(header)
	if m == nil {
		return Record{}, &MalformedError{Header: string(header), Reason: "header does not match " + HeaderPrefix + "{Stage}:exitcode={N}"}
	}

	s, err := stage.Parse(string(m[1]))
	if err != nil {
		return Record{}, &MalformedError{Header: string(header), Reason: err.Error()}
	}

	code, err := strconv.Atoi(string(m[2]))
	if err != nil {
		return Record{}, &MalformedError{Header: string(header), Reason: "exit code out of range"}
	}

	return Record{Stage: s, ExitCode: code, Output: string(body)}, nil
}

// Write encodes r. The header is terminated by exactly one newline and the
// output follows verbatim; nothing is appended after it.
func Write(r Record) []byte {
	var buf bytes.Buffer
	buf.Grow(len(r.Output) + 32)
	buf.WriteString(r.Header())
	buf.WriteByte('\n')
	buf.WriteString(r.Output)
	return buf.Bytes()
}
