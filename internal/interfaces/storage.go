package interfaces

import (
	"context"

	"github.com/applyforge/applyforge/internal/models"
)

// WorkflowStorage persists workflow job records
type WorkflowStorage interface {
	SaveWorkflow(ctx context.Context, wf *models.Workflow) error
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	ListWorkflows(ctx context.Context, limit, offset int) ([]*models.Workflow, error)
	ListWorkflowsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Workflow, error)
}

// ScraperStorage persists scraper definitions and scrape job records
type ScraperStorage interface {
	SaveScraper(ctx context.Context, s *models.Scraper) error
	GetScraper(ctx context.Context, id string) (*models.Scraper, error)
	GetScraperByName(ctx context.Context, name string) (*models.Scraper, error)
	ListScrapers(ctx context.Context) ([]*models.Scraper, error)
	DeleteScraper(ctx context.Context, name string) error

	SaveScrapeJob(ctx context.Context, job *models.ScrapeJob) error
	GetScrapeJob(ctx context.Context, id string) (*models.ScrapeJob, error)
	ListScrapeJobs(ctx context.Context, scraperName string) ([]*models.ScrapeJob, error)
}

// OfferStorage persists job offer records
type OfferStorage interface {
	CreateOffer(ctx context.Context, offer *models.JobOffer) error
	UpdateOffer(ctx context.Context, offer *models.JobOffer) error
	GetOffer(ctx context.Context, id string) (*models.JobOffer, error)
	GetOfferBySlug(ctx context.Context, slug string) (*models.JobOffer, error)
	ListOffers(ctx context.Context) ([]*models.JobOffer, error)
	DeleteOffer(ctx context.Context, id string) error
}
