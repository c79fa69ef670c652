package aliases

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler rebuilds the alias index on a cron schedule
type Scheduler struct {
	holder *Holder
	cron   *cron.Cron
	logger arbor.ILogger
}

// NewScheduler creates a new rebuild scheduler
func NewScheduler(holder *Holder, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		holder: holder,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start begins scheduled rebuilds. schedule is a standard 5-field cron
// expression or a descriptor such as @daily.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		// Default: daily at 02:00
		schedule = "0 2 * * *"
	}

	if _, err := s.cron.AddFunc(schedule, s.runRebuild); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Alias index rebuild scheduler started")

	return nil
}

// Stop stops the scheduler and waits for a running rebuild to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Alias index rebuild scheduler stopped")
}

func (s *Scheduler) runRebuild() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.holder.Rebuild(ctx); err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled alias index rebuild failed")
	}
}
