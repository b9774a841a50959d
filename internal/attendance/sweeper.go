package attendance

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper converges a person's day back to at most one record per status.
// It re-reads the store on every run because the engine may race with
// concurrent check-ins; repeated sweeps of an already-clean day are no-ops.
type Sweeper struct {
	store RecordStore
	log   *zap.Logger
}

// NewSweeper creates a sweeper over the given store.
func NewSweeper(store RecordStore, log *zap.Logger) *Sweeper {
	return &Sweeper{store: store, log: log}
}

// Sweep deletes all but the newest record of each status for the person/day
// window. Per-record deletion errors are logged and the sweep continues;
// the returned count is the number of records actually deleted. Only the
// initial read can fail the sweep.
func (s *Sweeper) Sweep(ctx context.Context, email string, start, end time.Time) (int, error) {
	records, err := s.store.RecordsForDay(ctx, email, start, end)
	if err != nil {
		return 0, err
	}

	// Newest-first order means the first record seen per status survives.
	seen := map[Status]bool{}
	deleted := 0
	for _, rec := range records {
		if !seen[rec.Status] {
			seen[rec.Status] = true
			continue
		}
		if err := s.store.DeleteRecord(ctx, rec.ID); err != nil {
			s.log.Warn("sweep: delete duplicate failed",
				zap.String("email", email),
				zap.String("record_id", rec.ID),
				zap.String("status", string(rec.Status)),
				zap.Error(err))
			continue
		}
		deleted++
		s.log.Info("sweep: deleted duplicate record",
			zap.String("email", email),
			zap.String("status", string(rec.Status)),
			zap.Time("event_time", rec.EventTime))
	}
	if deleted > 0 {
		sweepDeletionsTotal.Add(float64(deleted))
	}
	return deleted, nil
}

// Run executes a sweep job, absorbing errors. Safe to call concurrently for
// the same key.
func (s *Sweeper) Run(ctx context.Context, job SweepJob) {
	if _, err := s.Sweep(ctx, job.Email, job.Start, job.End); err != nil {
		s.log.Warn("sweep failed", zap.String("email", job.Email), zap.Error(err))
	}
}

// InlineSweeps schedules sweeps as in-process goroutines. Used when no
// queue/worker pair is deployed, and in tests.
type InlineSweeps struct {
	Sweeper *Sweeper
}

// Schedule runs the sweep in the background and never reports failure.
func (i InlineSweeps) Schedule(_ context.Context, job SweepJob) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		i.Sweeper.Run(ctx, job)
	}()
	return nil
}
