package models

import (
	"time"

	"github.com/applyforge/applyforge/internal/common"
)

// Scraper is a stored scraper definition. The Script body is supplied at
// runtime (user-authored JavaScript) and executed by the script runner.
type Scraper struct {
	ID             string                 `json:"id" badgerhold:"key"`
	Name           string                 `json:"name" badgerhold:"unique"`
	URL            string                 `json:"url"`
	Script         string                 `json:"script"`
	IsActive       bool                   `json:"is_active"`
	Config         map[string]interface{} `json:"config,omitempty"`
	LastExecutedAt *time.Time             `json:"last_executed_at,omitempty"`
	ExecutionCount int                    `json:"execution_count"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// NewScraper creates a scraper definition with a generated ID
func NewScraper(name, url, script string, config map[string]interface{}) *Scraper {
	now := time.Now()
	return &Scraper{
		ID:        common.NewScraperID(),
		Name:      name,
		URL:       url,
		Script:    script,
		IsActive:  true,
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ScrapeJob is the persisted record of one queued scrape execution.
// Status/Progress/Result/Error are owned exclusively by the queue worker.
type ScrapeJob struct {
	ID          string                 `json:"id" badgerhold:"key"`
	ScraperID   string                 `json:"scraper_id"`
	ScraperName string                 `json:"scraper_name"`
	Status      JobStatus              `json:"status"`
	Progress    int                    `json:"progress"`
	Params      map[string]interface{} `json:"params,omitempty"`
	ResultPath  string                 `json:"result_path,omitempty"` // Archival result file, set on completion
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NewScrapeJob creates a pending scrape job record for a scraper
func NewScrapeJob(scraper *Scraper, params map[string]interface{}) *ScrapeJob {
	now := time.Now()
	return &ScrapeJob{
		ID:          common.NewJobID(),
		ScraperID:   scraper.ID,
		ScraperName: scraper.Name,
		Status:      JobStatusPending,
		Progress:    0,
		Params:      params,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ScrapeResult is the structured artifact produced by one scrape run.
// A failed run carries Success=false plus Error/Stack; a successful run
// carries the extracted items.
type ScrapeResult struct {
	Success bool                     `json:"success"`
	Count   int                      `json:"count,omitempty"`
	Jobs    []map[string]interface{} `json:"jobs,omitempty"`
	Source  string                   `json:"source,omitempty"`
	URL     string                   `json:"url,omitempty"`
	Error   string                   `json:"error,omitempty"`
	Stack   string                   `json:"stack,omitempty"`
}

// ScrapeMessage is the queue work item for one scrape execution
type ScrapeMessage struct {
	JobID       string                 `json:"job_id"`
	ScraperID   string                 `json:"scraper_id"`
	ScraperName string                 `json:"scraper_name"`
	Params      map[string]interface{} `json:"params,omitempty"`
}
