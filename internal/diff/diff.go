// Package diff locates the first point at which two texts diverge.
//
// Positions are reported in the coordinate frame of the expected text:
// the line counter advances on newlines of the expected text only, even
// once the actual text has drifted.
package diff

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Kind classifies a divergence.
type Kind int

const (
	// Mismatch means both texts have a character at the position but they differ.
	Mismatch Kind = iota + 1
	// ExpectedShorter means the expected text is a strict prefix of the actual text.
	ExpectedShorter
	// ExpectedLonger means the actual text is a strict prefix of the expected text.
	ExpectedLonger
)

func (k Kind) String() string {
	switch k {
	case Mismatch:
		return "mismatch"
	case ExpectedShorter:
		return "shorter"
	case ExpectedLonger:
		return "longer"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Divergence is the first position at which two texts differ.
// Line, Column, Expected and Actual are only meaningful for Mismatch.
type Divergence struct {
	Kind     Kind `json:"kind"`
	Line     int  `json:"line"`
	Column   int  `json:"column"`
	Expected rune `json:"expected,omitempty"`
	Actual   rune `json:"actual,omitempty"`

	// ExpectedByte and ActualByte hold the raw byte when that side is not
	// valid UTF-8 at the divergence.
	ExpectedByte string `json:"expected_byte,omitempty"`
	ActualByte   string `json:"actual_byte,omitempty"`
}

func (d Divergence) String() string {
	switch d.Kind {
	case ExpectedShorter:
		return "the expectation is shorter than the actual output"
	case ExpectedLonger:
		return "the expectation is longer than the actual output"
	case Mismatch:
		return fmt.Sprintf("%d:%d: expected %s, got %s", d.Line, d.Column,
			quote(d.Expected, d.ExpectedByte), quote(d.Actual, d.ActualByte))
	default:
		return "no difference"
	}
}

func quote(r rune, raw string) string {
	if raw != "" {
		return strconv.Quote(raw)
	}
	return strconv.QuoteRune(r)
}

// FirstDivergence scans expected and actual character by character and
// reports the first difference. The boolean is false only when the texts are
// byte-for-byte equal. A byte that is not valid UTF-8 counts as one character
// and is compared by value, so invalid sequences never hide a difference.
//
// Length exhaustion is checked before the characters are compared, and the
// line/column counters advance after the comparison, so a mismatch on a
// newline character is reported at the end of the line it terminates.
func FirstDivergence(expected, actual string) (Divergence, bool) {
	line, column := 0, 0
	for i := 0; i < len(expected) || i < len(actual); {
		if i >= len(expected) {
			return Divergence{Kind: ExpectedShorter}, true
		}
		if i >= len(actual) {
			return Divergence{Kind: ExpectedLonger}, true
		}

		er, en := utf8.DecodeRuneInString(expected[i:])
		ar, an := utf8.DecodeRuneInString(actual[i:])
		if expected[i:i+en] != actual[i:i+an] {
			d := Divergence{
				Kind:     Mismatch,
				Line:     line,
				Column:   column,
				Expected: er,
				Actual:   ar,
			}
			if er == utf8.RuneError && en == 1 {
				d.ExpectedByte = expected[i : i+1]
			}
			if ar == utf8.RuneError && an == 1 {
				d.ActualByte = actual[i : i+1]
			}
			return d, true
		}

		if er == '\n' {
			line++
			column = 0
		} else {
			column++
		}
		i += en
	}
	return Divergence{}, false
}
