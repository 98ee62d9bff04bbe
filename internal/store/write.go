package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/ionstest/internal/harness"
)

// BeginRun records the start of a run and returns it with a fresh UUIDv7 ID.
func (s *Store) BeginRun(ctx context.Context, action Action, variant string, startedAt time.Time) (Run, error) {
	run := Run{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Action:    action,
		Variant:   variant,
		StartedAt: startedAt.UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, action, variant, started_at)
		VALUES (?, ?, ?, ?)
	`,
		run.ID,
		string(run.Action),
		run.Variant,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}

	return run, nil
}

// RecordResult inserts the outcome of one test case.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency - writing the same
// sequence number twice keeps the first row.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) RecordResult(ctx context.Context, r Result) error {
	priorJSON, err := marshalPrior(r.Prior)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results
		(run_id, seq, test_name, kind, reason, message, stage, exit_code, output, prior, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		r.RunID,
		r.Seq,
		r.Test,
		string(r.Kind),
		string(r.Reason),
		r.Message,
		r.Stage,
		r.ExitCode,
		r.Output,
		priorJSON,
		r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}

	return nil
}

// FinishRun stores the totals of a run and marks it finished.
// Returns ErrRunNotFound if no run has the given ID.
func (s *Store) FinishRun(ctx context.Context, runID string, finishedAt time.Time, sum harness.Summary) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, passed = ?, failed = ?, skipped = ?, errored = ?, generated = ?, kept = ?
		WHERE id = ?
	`,
		formatTime(finishedAt),
		sum.Passed,
		sum.Failed,
		sum.Skipped,
		sum.Errored,
		sum.Generated,
		sum.Kept,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}
