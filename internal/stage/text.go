package stage

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// NormalizeOutput converts raw tool output into the form used for comparison
// and for recording expectations: UTF-8 without a leading byte order mark,
// with CRLF pairs folded into a single LF.
func NormalizeOutput(raw []byte) string {
	decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		decoded = raw
	}
	return NormalizeNewlines(string(decoded))
}

// NormalizeText applies NormalizeOutput to text held as a string, such as
// an expectation read from disk. Invalid UTF-8 decodes to U+FFFD on both
// sides of a comparison.
func NormalizeText(s string) string {
	return NormalizeOutput([]byte(s))
}

// NormalizeNewlines folds CRLF pairs into LF. Lone CRs are kept.
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\r\n") {
		return s
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}
