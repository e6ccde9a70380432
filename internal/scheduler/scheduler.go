// Package scheduler runs periodic background jobs with gocron. The only job
// today is the cache warm sweep.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// New creates a scheduler. It does not run jobs until Start.
func New(logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to create gocron scheduler").Build()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleWarm runs warmer every interval. Runs never overlap: a run still in
// progress when the next is due pushes that run back. ctx bounds every run.
func (s *Scheduler) ScheduleWarm(ctx context.Context, interval time.Duration, warmer *Warmer) (string, error) {
	if interval <= 0 {
		return "", ferrors.ValidationError("warm interval must be positive").
			WithContext("interval", interval.String()).
			Build()
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { warmer.Run(ctx) }),
		gocron.WithName("cache-warm"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryInternal, "failed to create cache warm job").Build()
	}
	s.logger.Info("Scheduled cache warm", slog.Duration("interval", interval))
	return job.ID().String(), nil
}
