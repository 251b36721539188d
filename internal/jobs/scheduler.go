// Package jobs schedules periodic marketplace maintenance.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ldotspots/zuco-motors/internal/events"
)

// ExpirySchedule runs shortly after midnight, once the previous day's
// viewing requests can no longer be approved.
const ExpirySchedule = "0 5 0 * * *"

type Scheduler struct {
	cron  *cron.Cron
	queue events.Queue
	log   zerolog.Logger
}

func NewScheduler(queue events.Queue, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		queue: queue,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}
	if _, err := s.cron.AddFunc(ExpirySchedule, s.enqueueExpiry); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", ExpirySchedule).Msg("booking expiry scheduled")
	return nil
}

// Stop halts the scheduler and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) enqueueExpiry() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.queue.Enqueue(ctx, events.Task{Type: events.TaskExpireBookings}); err != nil {
		s.log.Error().Err(err).Msg("enqueue booking expiry failed")
	}
}
