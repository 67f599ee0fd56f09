package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/scrapers"
)

// scraperEntry tracks one scheduled scraper registration
type scraperEntry struct {
	schedule string
	cronID   cron.EntryID
}

// Service runs active scrapers on their configured cron schedules. A
// scraper opts in through a `schedule` string in its config map; scrapers
// without one are only run on demand. Refresh reconciles registrations
// against storage and is invoked after every scraper mutation.
type Service struct {
	storage  interfaces.ScraperStorage
	executor *scrapers.Executor
	cron     *cron.Cron
	logger   arbor.ILogger

	mu      sync.Mutex
	entries map[string]*scraperEntry // keyed by scraper name
	running bool
}

// NewService creates a scraper scheduler
func NewService(storage interfaces.ScraperStorage, executor *scrapers.Executor, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		executor: executor,
		cron:     cron.New(),
		logger:   logger,
		entries:  make(map[string]*scraperEntry),
	}
}

// Start registers schedules for stored scrapers and starts the cron loop
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Refresh(ctx); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for in-flight submissions
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// Refresh reconciles cron registrations with stored scraper definitions.
// Inactive scrapers and scrapers without a schedule are deregistered;
// changed schedules are re-registered.
func (s *Service) Refresh(ctx context.Context) error {
	scraperList, err := s.storage.ListScrapers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scrapers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]string)
	for _, sc := range scraperList {
		if !sc.IsActive {
			continue
		}
		schedule := scheduleOf(sc.Config)
		if schedule == "" {
			continue
		}
		wanted[sc.Name] = schedule
	}

	for name, entry := range s.entries {
		if schedule, ok := wanted[name]; !ok || schedule != entry.schedule {
			s.cron.Remove(entry.cronID)
			delete(s.entries, name)
			s.logger.Debug().Str("scraper", name).Msg("Schedule removed")
		}
	}

	for name, schedule := range wanted {
		if _, ok := s.entries[name]; ok {
			continue
		}
		cronID, err := s.cron.AddFunc(schedule, s.runFunc(name))
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("scraper", name).
				Str("schedule", schedule).
				Msg("Invalid scraper schedule, skipping")
			continue
		}
		s.entries[name] = &scraperEntry{schedule: schedule, cronID: cronID}
		s.logger.Info().
			Str("scraper", name).
			Str("schedule", schedule).
			Msg("Scraper scheduled")
	}

	return nil
}

func (s *Service) runFunc(scraperName string) func() {
	return func() {
		handle, err := s.executor.Execute(context.Background(), scraperName, nil)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("scraper", scraperName).
				Msg("Scheduled scrape submission failed")
			return
		}
		s.logger.Info().
			Str("scraper", scraperName).
			Str("job_id", handle.JobID).
			Msg("Scheduled scrape queued")
	}
}

func scheduleOf(config map[string]interface{}) string {
	if config == nil {
		return ""
	}
	if schedule, ok := config["schedule"].(string); ok {
		return schedule
	}
	return ""
}
