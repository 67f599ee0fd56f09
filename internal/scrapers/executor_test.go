package scrapers

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/common"
	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
	"github.com/applyforge/applyforge/internal/queue"
	badgerstore "github.com/applyforge/applyforge/internal/storage/badger"
)

// stubRunner lets executor tests control script outcomes without a VM
type stubRunner struct {
	result *models.ScrapeResult
	err    error
	calls  int
}

func (s *stubRunner) Run(ctx context.Context, scraperName, script string, params map[string]interface{}) (*models.ScrapeResult, error) {
	s.calls++
	return s.result, s.err
}

type executorFixture struct {
	storage interfaces.ScraperStorage
	queue   *queue.Manager
	runner  *stubRunner
	exec    *Executor
}

func newExecutorFixture(t *testing.T) *executorFixture {
	t.Helper()
	logger := arbor.NewLogger()

	db, err := badgerstore.NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage := badgerstore.NewScraperStorage(db, logger)
	queueMgr, err := queue.NewManager(db.DB(), "test-queue", 0, 0)
	require.NoError(t, err)

	results, err := NewResultStore(t.TempDir(), logger)
	require.NoError(t, err)

	runner := &stubRunner{}
	return &executorFixture{
		storage: storage,
		queue:   queueMgr,
		runner:  runner,
		exec:    NewExecutor(storage, queueMgr, runner, results, logger),
	}
}

func (f *executorFixture) addScraper(t *testing.T, name string) *models.Scraper {
	t.Helper()
	scraper := models.NewScraper(name, "https://example.com/jobs", "function scrape(p) {}", nil)
	require.NoError(t, f.storage.SaveScraper(context.Background(), scraper))
	return scraper
}

func TestExecutor_ExecuteUnknownScraperLeavesQueueUntouched(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()

	handle, err := f.exec.Execute(ctx, "ghost", nil)
	require.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.Nil(t, handle)

	pending, err := f.queue.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending, "no queue item for an unknown scraper")
}

func TestExecutor_ExecuteQueuesJobAndBumpsStats(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()
	f.addScraper(t, "acme")

	handle, err := f.exec.Execute(ctx, "acme", map[string]interface{}{"q": "go"})
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, "acme", handle.ScraperName)
	assert.NotEmpty(t, handle.MessageID)

	job, err := f.storage.GetScrapeJob(ctx, handle.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Progress)

	pending, err := f.queue.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	scraper, err := f.storage.GetScraperByName(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, scraper.ExecutionCount, "bookkeeping bumped at submission")
	assert.NotNil(t, scraper.LastExecutedAt)
	assert.Equal(t, 0, f.runner.calls, "nothing runs until a worker picks the message up")
}

func TestExecutor_HandleMessageSuccess(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()
	f.addScraper(t, "acme")
	f.runner.result = &models.ScrapeResult{
		Success: true,
		Count:   2,
		Jobs:    []map[string]interface{}{{"title": "A"}, {"title": "B"}},
		Source:  "acme",
	}

	handle, err := f.exec.Execute(ctx, "acme", nil)
	require.NoError(t, err)

	msg, ack, err := f.queue.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, f.exec.HandleMessage(ctx, msg.Body))
	require.NoError(t, ack())

	job, err := f.storage.GetScrapeJob(ctx, handle.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.NotEmpty(t, job.ResultPath)
	assert.Empty(t, job.Error)

	latest, err := f.exec.Results().Latest("acme")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Success)
	assert.Equal(t, 2, latest.Count)
}

func TestExecutor_HandleMessageScriptFailure(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()
	f.addScraper(t, "acme")
	f.runner.err = fmt.Errorf("script error: boom")

	handle, err := f.exec.Execute(ctx, "acme", nil)
	require.NoError(t, err)

	msg, ack, err := f.queue.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, f.exec.HandleMessage(ctx, msg.Body), "script failures are terminal, not retried")
	require.NoError(t, ack())

	job, err := f.storage.GetScrapeJob(ctx, handle.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Contains(t, job.Error, "boom", "exact cause preserved on the record")

	latest, err := f.exec.Results().Latest("acme")
	require.NoError(t, err)
	require.NotNil(t, latest, "failure artifact written")
	assert.False(t, latest.Success)
	assert.Contains(t, latest.Error, "boom")
}

func TestExecutor_HandleMessageUnknownScraperID(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()
	scraper := f.addScraper(t, "acme")

	handle, err := f.exec.Execute(ctx, "acme", nil)
	require.NoError(t, err)

	// Definition deleted between enqueue and processing
	require.NoError(t, f.storage.DeleteScraper(ctx, scraper.Name))

	msg, _, err := f.queue.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, f.exec.HandleMessage(ctx, msg.Body))

	job, err := f.storage.GetScrapeJob(ctx, handle.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "failed to load scraper")
}

func TestExecutor_RedeliveredMessageForFinishedJobDropped(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()
	f.addScraper(t, "acme")
	f.runner.result = &models.ScrapeResult{Success: true, Count: 1}

	handle, err := f.exec.Execute(ctx, "acme", nil)
	require.NoError(t, err)

	// The process restarts before the message is handled: startup
	// reconciliation fails the job, but the durable message survives.
	job, err := f.storage.GetScrapeJob(ctx, handle.JobID)
	require.NoError(t, err)
	job.Status = models.JobStatusFailed
	job.Error = "interrupted by restart"
	require.NoError(t, f.storage.SaveScrapeJob(ctx, job))

	msg, ack, err := f.queue.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, f.exec.HandleMessage(ctx, msg.Body))
	require.NoError(t, ack())

	job, err = f.storage.GetScrapeJob(ctx, handle.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status, "terminal records never transition again")
	assert.Equal(t, "interrupted by restart", job.Error)
	assert.Equal(t, 0, f.runner.calls, "the script never runs for a finished job")

	latest, err := f.exec.Results().Latest("acme")
	require.NoError(t, err)
	assert.Nil(t, latest, "no artifact is written for a dropped message")
}

func TestExecutor_HandleMessageMalformedBodyDropped(t *testing.T) {
	f := newExecutorFixture(t)
	err := f.exec.HandleMessage(context.Background(), json.RawMessage(`{not json`))
	assert.NoError(t, err, "malformed messages are dropped, not retried")
}

func TestGenerateScript_DefaultAndOverrideSelector(t *testing.T) {
	script, err := GenerateScript("acme", "https://example.com/jobs", nil)
	require.NoError(t, err)
	assert.Contains(t, script, "function scrape(params)")
	assert.Contains(t, script, `"https://example.com/jobs"`)
	assert.Contains(t, script, defaultSelector)

	script, err = GenerateScript("acme", "https://example.com/jobs", map[string]interface{}{"selector": ".vacancy"})
	require.NoError(t, err)
	assert.Contains(t, script, `".vacancy"`)
	assert.NotContains(t, script, defaultSelector)

	// The generated starter script must at least parse
	_, err = goja.New().RunString(script)
	require.NoError(t, err)
}
