package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
)

// ScraperStorage implements interfaces.ScraperStorage for Badger
type ScraperStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.ScraperStorage = (*ScraperStorage)(nil)

// NewScraperStorage creates a new ScraperStorage instance
func NewScraperStorage(db *BadgerDB, logger arbor.ILogger) *ScraperStorage {
	return &ScraperStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ScraperStorage) SaveScraper(ctx context.Context, scraper *models.Scraper) error {
	if scraper.ID == "" {
		return fmt.Errorf("scraper ID is required")
	}
	if scraper.Name == "" {
		return fmt.Errorf("scraper name is required")
	}
	scraper.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(scraper.ID, scraper); err != nil {
		return fmt.Errorf("failed to save scraper: %w", err)
	}
	return nil
}

func (s *ScraperStorage) GetScraper(ctx context.Context, id string) (*models.Scraper, error) {
	var scraper models.Scraper
	if err := s.db.Store().Get(id, &scraper); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scraper: %w", err)
	}
	return &scraper, nil
}

func (s *ScraperStorage) GetScraperByName(ctx context.Context, name string) (*models.Scraper, error) {
	var scrapers []models.Scraper
	if err := s.db.Store().Find(&scrapers, badgerhold.Where("Name").Eq(name).Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to find scraper by name: %w", err)
	}
	if len(scrapers) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &scrapers[0], nil
}

func (s *ScraperStorage) ListScrapers(ctx context.Context) ([]*models.Scraper, error) {
	var scrapers []models.Scraper
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&scrapers, query); err != nil {
		return nil, fmt.Errorf("failed to list scrapers: %w", err)
	}

	result := make([]*models.Scraper, len(scrapers))
	for i := range scrapers {
		result[i] = &scrapers[i]
	}
	return result, nil
}

func (s *ScraperStorage) DeleteScraper(ctx context.Context, name string) error {
	scraper, err := s.GetScraperByName(ctx, name)
	if err != nil {
		return err
	}
	if err := s.db.Store().Delete(scraper.ID, &models.Scraper{}); err != nil {
		return fmt.Errorf("failed to delete scraper: %w", err)
	}
	return nil
}

func (s *ScraperStorage) SaveScrapeJob(ctx context.Context, job *models.ScrapeJob) error {
	if job.ID == "" {
		return fmt.Errorf("scrape job ID is required")
	}
	job.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save scrape job: %w", err)
	}
	return nil
}

func (s *ScraperStorage) GetScrapeJob(ctx context.Context, id string) (*models.ScrapeJob, error) {
	var job models.ScrapeJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scrape job: %w", err)
	}
	return &job, nil
}

func (s *ScraperStorage) ListScrapeJobs(ctx context.Context, scraperName string) ([]*models.ScrapeJob, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if scraperName != "" {
		query = badgerhold.Where("ScraperName").Eq(scraperName).SortBy("CreatedAt").Reverse()
	}

	var jobs []models.ScrapeJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list scrape jobs: %w", err)
	}

	result := make([]*models.ScrapeJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}
