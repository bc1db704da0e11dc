package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Refresher reloads the series currently on screen.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Purger drops expired cache entries and reports how many were removed.
type Purger interface {
	Purge() int
}

// Scheduler manages the periodic tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Refresher Refresher
	Cache     Purger
	Ctx       context.Context
}

// NewScheduler creates a new Scheduler. cache may be nil when caching is off.
func NewScheduler(ctx context.Context, r Refresher, cache Purger) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Refresher: r,
		Cache:     cache,
		Ctx:       ctx,
	}
}

// RegisterAll registers the refresh and cache purge tasks. An empty spec
// disables the task.
func (s *Scheduler) RegisterAll(refreshCron, purgeCron string) error {
	if refreshCron != "" {
		if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
			return fmt.Errorf("register refresh task: %w", err)
		}
	}
	if purgeCron != "" && s.Cache != nil {
		if _, err := s.Cron.AddFunc(purgeCron, s.purgeTask); err != nil {
			return fmt.Errorf("register purge task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("tasks", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunRefreshNow executes the refresh task immediately.
func (s *Scheduler) RunRefreshNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	if s.Ctx.Err() != nil {
		return
	}
	log.Debug().Msg("running refresh task")
	if err := s.Refresher.Refresh(s.Ctx); err != nil {
		log.Error().Err(err).Msg("scheduled refresh failed")
	}
}

func (s *Scheduler) purgeTask() {
	if n := s.Cache.Purge(); n > 0 {
		log.Debug().Int("removed", n).Msg("series cache purged")
	}
}
