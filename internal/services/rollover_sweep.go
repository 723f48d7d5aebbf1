package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Report summarizes one sweep over the overdue bills.
type Report struct {
	Attempted int
	Succeeded int
	Failures  []Failure
}

// Failure records one bill that could not be rolled over.
type Failure struct {
	BillID string
	Err    error
}

// SweepRunner runs the daily rollover over every bill whose next due date has
// passed. It does not own the timer: the caller invokes RunDailyRollover on
// whatever cadence it likes, and overlapping invocations collapse into a
// single execution.
type SweepRunner struct {
	store     BillStore
	processor *RolloverProcessor
	timeout   time.Duration
	group     singleflight.Group
}

// NewSweepRunner creates a sweep runner. timeout bounds one whole sweep;
// zero means no limit.
func NewSweepRunner(store BillStore, processor *RolloverProcessor, timeout time.Duration) *SweepRunner {
	return &SweepRunner{
		store:     store,
		processor: processor,
		timeout:   timeout,
	}
}

// RunDailyRollover selects all overdue bills as of now and rolls each one
// over. Per-bill failures are isolated: they are recorded in the report and
// do not stop the rest of the batch. Only a failure of the initial due-bill
// query aborts the sweep.
//
// Concurrent calls share one execution and one report.
func (s *SweepRunner) RunDailyRollover(ctx context.Context, now time.Time) (Report, error) {
	v, err, shared := s.group.Do("daily-rollover", func() (any, error) {
		return s.sweep(ctx, now)
	})
	if shared {
		slog.InfoContext(ctx, "Sweep already in flight, sharing its result")
	}
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

func (s *SweepRunner) sweep(ctx context.Context, now time.Time) (Report, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	sweepsTotal.Inc()

	dueBills, err := s.store.ListDueBills(ctx, now)
	if err != nil {
		sweepFailuresTotal.Inc()
		return Report{}, fmt.Errorf("list due bills: %w", err)
	}

	slog.InfoContext(ctx, "Processing overdue bills",
		"total_due", len(dueBills),
		"processing_date", now.Format("2006-01-02"))

	var report Report
	for _, bill := range dueBills {
		report.Attempted++

		if _, err := s.processor.Rollover(ctx, bill, now); err != nil {
			billsRolledTotal.WithLabelValues("error").Inc()
			report.Failures = append(report.Failures, Failure{BillID: bill.ID, Err: err})
			slog.ErrorContext(ctx, "Failed to roll over bill",
				"id", bill.ID,
				"owner", bill.Owner,
				"error", err)
			continue
		}

		billsRolledTotal.WithLabelValues("ok").Inc()
		report.Succeeded++
	}

	sweepDuration.Observe(time.Since(started).Seconds())

	slog.InfoContext(ctx, "Rollover sweep complete",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", len(report.Failures))

	return report, nil
}
