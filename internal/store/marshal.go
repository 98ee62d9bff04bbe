package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/ionstest/internal/stage"
)

// timeLayout stores timestamps as sortable UTC text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// marshalPrior converts the passed stages of a result to JSON TEXT.
// HTML escaping is disabled so tool output is stored as written.
func marshalPrior(prior []stage.Outcome) (string, error) {
	if len(prior) == 0 {
		return "[]", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(prior); err != nil {
		return "", fmt.Errorf("marshal prior stages: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalPrior parses JSON TEXT written by marshalPrior.
func unmarshalPrior(data string) ([]stage.Outcome, error) {
	prior := []stage.Outcome{}
	if data == "" || data == "[]" {
		return prior, nil
	}
	if err := json.Unmarshal([]byte(data), &prior); err != nil {
		return nil, fmt.Errorf("unmarshal prior stages: %w", err)
	}
	return prior, nil
}
