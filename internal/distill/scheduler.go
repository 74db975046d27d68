package distill

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler triggers a full distillation run once a day at a fixed UTC
// hour. Manual runs through the engine remain possible while the
// scheduler is up; the engine's scope locks arbitrate.
type Scheduler struct {
	engine *Engine
	hour   int
	log    *slog.Logger
}

func NewScheduler(engine *Engine, hourUTC int, log *slog.Logger) *Scheduler {
	if hourUTC < 0 || hourUTC > 23 {
		hourUTC = 2
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		engine: engine,
		hour:   hourUTC,
		log:    log.With("component", "scheduler"),
	}
}

// Start blocks until ctx is cancelled, firing a run at each scheduled
// time. Run it on its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("scheduler started", "hour_utc", s.hour)

	for {
		wait := time.Until(s.nextRun(time.Now().UTC()))
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler stopped")
			return
		case <-timer.C:
		}

		report, err := s.engine.Run(ctx, "")
		if err != nil {
			// Typically an overlapping manual run; skip this slot.
			s.log.Warn("scheduled run skipped", "error", err)
			continue
		}
		s.log.Info("scheduled run finished",
			"status", report.Status,
			"distilled", report.KnowledgeDistilled,
			"promoted", report.MemoriesPromoted,
			"expired", report.MemoriesExpired)
	}
}

func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
