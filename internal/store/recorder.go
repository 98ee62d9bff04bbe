package store

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/ionstest/internal/harness"
)

// Recorder writes the outcomes of a suite into one run as they arrive.
// Callers adapt Observe to a harness.Observer by closing over the suite's
// context.
//
// Write errors do not interrupt the suite. The first one is kept, further
// outcomes are dropped, and the error is reported by Err and Finish.
type Recorder struct {
	store *Store
	run   Run

	mu  sync.Mutex
	seq int64
	err error
}

// NewRecorder starts a run and returns a recorder for it.
func (s *Store) NewRecorder(ctx context.Context, action Action, variant string, startedAt time.Time) (*Recorder, error) {
	run, err := s.BeginRun(ctx, action, variant, startedAt)
	if err != nil {
		return nil, err
	}
	return &Recorder{store: s, run: run}, nil
}

// Run returns the run being recorded.
func (r *Recorder) Run() Run {
	return r.run
}

// Observe records one outcome.
func (r *Recorder) Observe(ctx context.Context, o harness.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}
	r.seq++
	r.err = r.store.RecordResult(ctx, ResultFromOutcome(r.run.ID, r.seq, o))
}

// Err returns the first write error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Finish stores the run totals. It returns the first write error, if any,
// before attempting to finish.
func (r *Recorder) Finish(ctx context.Context, finishedAt time.Time, sum harness.Summary) error {
	if err := r.Err(); err != nil {
		return err
	}
	return r.store.FinishRun(ctx, r.run.ID, finishedAt, sum)
}
