package worker

import (
	"context"
	"fmt"
	"time"

	"pricewatch-service/internal/util"

	"go.uber.org/zap"
)

// Scheduler fires the daily run at a configured local wall-clock time.
// The clock is its only dependency; the run itself goes through the same
// path as a manually triggered one.
type Scheduler struct {
	at     string // "HH:MM"
	run    func(ctx context.Context, day time.Time) error
	logger *zap.Logger
}

// NewScheduler creates a scheduler. An empty time disables it.
func NewScheduler(at string, run func(ctx context.Context, day time.Time) error) (*Scheduler, error) {
	if at != "" {
		if _, err := time.Parse("15:04", at); err != nil {
			return nil, fmt.Errorf("invalid run time %q: %w", at, err)
		}
	}
	return &Scheduler{at: at, run: run, logger: util.GetLogger()}, nil
}

// Start blocks until ctx is cancelled, firing the run once per day.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.at == "" {
		s.logger.Info("Scheduler disabled, runs are API-triggered only")
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		next := s.nextFire(time.Now())
		s.logger.Info("Next scheduled run", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case now := <-timer.C:
			day := util.DayStart(now)
			if err := s.run(ctx, day); err != nil {
				s.logger.Error("Scheduled run failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) nextFire(now time.Time) time.Time {
	t, _ := time.Parse("15:04", s.at)
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
