// Package retrain refits the content classifiers on a cron schedule.
package retrain

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/safeguard/safety-assistant/internal/application"
)

// Retrainer runs one retraining pass
type Retrainer interface {
	Retrain(ctx context.Context) (*application.TrainingReport, error)
}

// Scheduler triggers a Retrainer at every activation of a cron schedule.
// Runs never overlap: the next activation is computed after a run completes.
type Scheduler struct {
	schedule  cron.Schedule
	retrainer Retrainer
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a scheduler for an already parsed schedule
func NewScheduler(schedule cron.Schedule, retrainer Retrainer, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		schedule:  schedule,
		retrainer: retrainer,
		logger:    logger.With(zap.String("component", "retrain_scheduler")),
		now:       time.Now,
	}
}

// Run blocks until ctx is canceled
func (s *Scheduler) Run(ctx context.Context) {
	for {
		now := s.now()
		next := s.schedule.Next(now)
		if next.IsZero() {
			s.logger.Warn("schedule has no future activation, stopping")
			return
		}
		wait := next.Sub(now)
		s.logger.Info("next retraining scheduled",
			zap.Time("at", next),
			zap.Duration("in", wait.Round(time.Second)))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("retrain scheduler stopped")
			return
		case <-timer.C:
		}

		s.runOnce(ctx)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.retrainer.Retrain(ctx)
	if err != nil {
		s.logger.Error("scheduled retraining failed", zap.Error(err))
	}
	if report == nil {
		return
	}

	fields := []zap.Field{zap.Duration("duration", report.Duration), zap.Int("skipped", report.Skipped)}
	for kind, n := range report.Samples {
		fields = append(fields, zap.Int(string(kind)+"_samples", n))
	}
	s.logger.Info("scheduled retraining complete", fields...)
}
