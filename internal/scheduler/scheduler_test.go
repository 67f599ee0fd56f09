package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
)

// stubScraperStorage implements interfaces.ScraperStorage; only ListScrapers
// matters to the scheduler.
type stubScraperStorage struct {
	scrapers []*models.Scraper
}

func (s *stubScraperStorage) SaveScraper(ctx context.Context, sc *models.Scraper) error {
	return nil
}

func (s *stubScraperStorage) GetScraper(ctx context.Context, id string) (*models.Scraper, error) {
	return nil, interfaces.ErrNotFound
}

func (s *stubScraperStorage) GetScraperByName(ctx context.Context, name string) (*models.Scraper, error) {
	return nil, interfaces.ErrNotFound
}

func (s *stubScraperStorage) ListScrapers(ctx context.Context) ([]*models.Scraper, error) {
	return s.scrapers, nil
}

func (s *stubScraperStorage) DeleteScraper(ctx context.Context, name string) error {
	return nil
}

func (s *stubScraperStorage) SaveScrapeJob(ctx context.Context, job *models.ScrapeJob) error {
	return nil
}

func (s *stubScraperStorage) GetScrapeJob(ctx context.Context, id string) (*models.ScrapeJob, error) {
	return nil, interfaces.ErrNotFound
}

func (s *stubScraperStorage) ListScrapeJobs(ctx context.Context, scraperName string) ([]*models.ScrapeJob, error) {
	return nil, nil
}

func testScraper(name, schedule string, active bool) *models.Scraper {
	sc := &models.Scraper{Name: name, IsActive: active}
	if schedule != "" {
		sc.Config = map[string]interface{}{"schedule": schedule}
	}
	return sc
}

func TestRefresh_RegistersActiveScheduledScrapersOnly(t *testing.T) {
	storage := &stubScraperStorage{scrapers: []*models.Scraper{
		testScraper("hourly", "@hourly", true),
		testScraper("on-demand", "", true),
		testScraper("disabled", "@daily", false),
	}}
	// Refresh only reads storage; the executor is untouched until a schedule fires
	svc := NewService(storage, nil, arbor.NewLogger())

	require.NoError(t, svc.Refresh(context.Background()))

	assert.Len(t, svc.entries, 1)
	require.Contains(t, svc.entries, "hourly")
	assert.Equal(t, "@hourly", svc.entries["hourly"].schedule)
}

func TestRefresh_ReconcilesChangesAndRemovals(t *testing.T) {
	storage := &stubScraperStorage{scrapers: []*models.Scraper{
		testScraper("jobs", "@hourly", true),
		testScraper("news", "@daily", true),
	}}
	svc := NewService(storage, nil, arbor.NewLogger())
	require.NoError(t, svc.Refresh(context.Background()))
	require.Len(t, svc.entries, 2)
	firstID := svc.entries["jobs"].cronID

	// Change one schedule, deactivate the other
	storage.scrapers = []*models.Scraper{
		testScraper("jobs", "@weekly", true),
		testScraper("news", "@daily", false),
	}
	require.NoError(t, svc.Refresh(context.Background()))

	assert.Len(t, svc.entries, 1)
	require.Contains(t, svc.entries, "jobs")
	assert.Equal(t, "@weekly", svc.entries["jobs"].schedule)
	assert.NotEqual(t, firstID, svc.entries["jobs"].cronID, "changed schedules are re-registered")
	assert.NotContains(t, svc.entries, "news")
}

func TestRefresh_UnchangedEntriesKept(t *testing.T) {
	storage := &stubScraperStorage{scrapers: []*models.Scraper{
		testScraper("jobs", "@hourly", true),
	}}
	svc := NewService(storage, nil, arbor.NewLogger())
	require.NoError(t, svc.Refresh(context.Background()))
	firstID := svc.entries["jobs"].cronID

	require.NoError(t, svc.Refresh(context.Background()))
	assert.Equal(t, firstID, svc.entries["jobs"].cronID, "stable schedules keep their registration")
}

func TestRefresh_InvalidScheduleSkipped(t *testing.T) {
	storage := &stubScraperStorage{scrapers: []*models.Scraper{
		testScraper("broken", "every five minutes", true),
		testScraper("good", "*/5 * * * *", true),
	}}
	svc := NewService(storage, nil, arbor.NewLogger())

	require.NoError(t, svc.Refresh(context.Background()))

	assert.Len(t, svc.entries, 1)
	assert.Contains(t, svc.entries, "good")
}

func TestStart_RejectsDoubleStart(t *testing.T) {
	svc := NewService(&stubScraperStorage{}, nil, arbor.NewLogger())
	t.Cleanup(svc.Stop)

	require.NoError(t, svc.Start(context.Background()))
	assert.Error(t, svc.Start(context.Background()))
}
