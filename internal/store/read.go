package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ionstest/internal/harness"
)

const runColumns = `id, action, variant, started_at, finished_at, passed, failed, skipped, errored, generated, kept`

const resultColumns = `run_id, seq, test_name, kind, reason, message, stage, exit_code, output, prior, duration_ms`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadRun retrieves a single run by ID.
// Returns ErrRunNotFound if no run has the given ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// FindRun retrieves the run whose ID starts with prefix.
// A prefix matching more than one run is an error.
func (s *Store) FindRun(ctx context.Context, prefix string) (Run, error) {
	if prefix == "" {
		return Run{}, fmt.Errorf("find run: empty ID")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE substr(id, 1, ?) = ?
		ORDER BY id COLLATE BINARY ASC
		LIMIT 2
	`, len(prefix), prefix)
	if err != nil {
		return Run{}, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return Run{}, err
	}

	switch len(runs) {
	case 0:
		return Run{}, fmt.Errorf("find run %s: %w", prefix, ErrRunNotFound)
	case 1:
		return runs[0], nil
	default:
		return Run{}, fmt.Errorf("run ID prefix %q is ambiguous", prefix)
	}
}

// ListRuns returns the most recent runs, newest first.
// A limit of zero or less returns all runs.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// ReadResults returns the results of a run in suite order.
//
// Returns an empty slice (not nil) if the run has no results.
func (s *Store) ReadResults(ctx context.Context, runID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+resultColumns+`
		FROM results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// TestHistory returns the recorded results of one test across runs, newest
// run first. A limit of zero or less returns all of them.
func (s *Store) TestHistory(ctx context.Context, test string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.seq, r.test_name, r.kind, r.reason, r.message,
		       r.stage, r.exit_code, r.output, r.prior, r.duration_ms
		FROM results r
		JOIN runs ON runs.id = r.run_id
		WHERE r.test_name = ?
		ORDER BY runs.started_at DESC, runs.id COLLATE BINARY DESC, r.seq ASC
		LIMIT ?
	`, test, limit)
	if err != nil {
		return nil, fmt.Errorf("query test history: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		action     string
		startedAt  string
		finishedAt sql.NullString
	)
	err := row.Scan(
		&run.ID,
		&action,
		&run.Variant,
		&startedAt,
		&finishedAt,
		&run.Passed,
		&run.Failed,
		&run.Skipped,
		&run.Errored,
		&run.Generated,
		&run.Kept,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Action = Action(action)
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return Run{}, err
	}
	if run.FinishedAt, err = parseNullTime(finishedAt); err != nil {
		return Run{}, err
	}
	return run, nil
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	results := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

func scanResult(row rowScanner) (Result, error) {
	var (
		r          Result
		kind       string
		reason     string
		priorJSON  string
		durationMS int64
	)
	err := row.Scan(
		&r.RunID,
		&r.Seq,
		&r.Test,
		&kind,
		&reason,
		&r.Message,
		&r.Stage,
		&r.ExitCode,
		&r.Output,
		&priorJSON,
		&durationMS,
	)
	if err != nil {
		return Result{}, fmt.Errorf("scan result: %w", err)
	}

	r.Kind = harness.Kind(kind)
	r.Reason = harness.Reason(reason)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	if r.Prior, err = unmarshalPrior(priorJSON); err != nil {
		return Result{}, err
	}
	return r, nil
}
