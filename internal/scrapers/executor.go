package scrapers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
	"github.com/applyforge/applyforge/internal/queue"
)

// MessageTypeScrape is the queue message type handled by the executor
const MessageTypeScrape = "scrape"

// Job record progress checkpoints, written as the worker advances
const (
	progressStarted  = 10
	progressLoaded   = 30
	progressScraped  = 90
	progressRecorded = 100
)

// ExecutionHandle identifies a queued scrape run
type ExecutionHandle struct {
	JobID       string `json:"job_id"`
	MessageID   string `json:"message_id"`
	ScraperName string `json:"scraper_name"`
}

// Executor submits scrape runs to the durable queue and processes them on
// the worker pool. Execution is strictly asynchronous: Execute persists a
// pending job record and a queue message, and the registered handler does
// the actual work later.
type Executor struct {
	storage interfaces.ScraperStorage
	queue   *queue.Manager
	runner  interfaces.ScriptRunner
	results *ResultStore
	logger  arbor.ILogger
}

// NewExecutor creates a scrape executor
func NewExecutor(
	storage interfaces.ScraperStorage,
	queueMgr *queue.Manager,
	runner interfaces.ScriptRunner,
	results *ResultStore,
	logger arbor.ILogger,
) *Executor {
	return &Executor{
		storage: storage,
		queue:   queueMgr,
		runner:  runner,
		results: results,
		logger:  logger,
	}
}

// Results exposes the result store for read endpoints
func (e *Executor) Results() *ResultStore {
	return e.results
}

// Execute queues one run of the named scraper. An unknown name returns
// ErrNotFound without creating any record or queue item. Scraper
// bookkeeping (LastExecutedAt, ExecutionCount) is bumped at submission
// time, before the run completes.
func (e *Executor) Execute(ctx context.Context, scraperName string, params map[string]interface{}) (*ExecutionHandle, error) {
	scraper, err := e.storage.GetScraperByName(ctx, scraperName)
	if err != nil {
		return nil, err
	}

	job := models.NewScrapeJob(scraper, params)
	if err := e.storage.SaveScrapeJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create scrape job: %w", err)
	}

	body, err := json.Marshal(&models.ScrapeMessage{
		JobID:       job.ID,
		ScraperID:   scraper.ID,
		ScraperName: scraper.Name,
		Params:      params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode scrape message: %w", err)
	}

	msgID, err := e.queue.Enqueue(ctx, queue.Message{Type: MessageTypeScrape, Body: body})
	if err != nil {
		e.failJob(ctx, job.ID, fmt.Sprintf("failed to enqueue: %v", err))
		return nil, fmt.Errorf("failed to enqueue scrape: %w", err)
	}

	now := time.Now()
	scraper.LastExecutedAt = &now
	scraper.ExecutionCount++
	scraper.UpdatedAt = now
	if err := e.storage.SaveScraper(ctx, scraper); err != nil {
		// Bookkeeping only; the queued run is already committed.
		e.logger.Warn().
			Err(err).
			Str("scraper", scraper.Name).
			Msg("Failed to update scraper execution stats")
	}

	e.logger.Info().
		Str("scraper", scraper.Name).
		Str("job_id", job.ID).
		Msg("Scrape queued")

	return &ExecutionHandle{
		JobID:       job.ID,
		MessageID:   msgID,
		ScraperName: scraper.Name,
	}, nil
}

// Register wires the executor's handler into the worker pool
func (e *Executor) Register(pool *queue.WorkerPool) {
	pool.RegisterHandler(MessageTypeScrape, e.HandleMessage)
}

// HandleMessage processes one queued scrape run. Script and definition
// failures are terminal for the job, recorded as a failure artifact, and
// never returned to the queue: a non-nil return here means only that the
// job record itself could not be read or written.
func (e *Executor) HandleMessage(ctx context.Context, body json.RawMessage) error {
	var msg models.ScrapeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		e.logger.Error().Err(err).Msg("Dropping malformed scrape message")
		return nil
	}

	// A redelivered message may reference a job that already finished,
	// e.g. one marked failed by restart reconciliation. Terminal records
	// never transition again; drop the message.
	job, err := e.storage.GetScrapeJob(ctx, msg.JobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		e.logger.Warn().
			Str("job_id", msg.JobID).
			Str("status", string(job.Status)).
			Msg("Dropping redelivered message for finished job")
		return nil
	}

	if err := e.updateProgress(ctx, msg.JobID, progressStarted); err != nil {
		return err
	}

	scraper, err := e.storage.GetScraper(ctx, msg.ScraperID)
	if err != nil {
		return e.recordFailure(ctx, msg, fmt.Errorf("failed to load scraper: %w", err))
	}

	if err := e.updateProgress(ctx, msg.JobID, progressLoaded); err != nil {
		return err
	}

	result, err := e.runner.Run(ctx, scraper.Name, scraper.Script, msg.Params)
	if err != nil {
		return e.recordFailure(ctx, msg, err)
	}

	if err := e.updateProgress(ctx, msg.JobID, progressScraped); err != nil {
		return err
	}

	archivePath, err := e.results.Save(scraper.Name, result)
	if err != nil {
		return e.recordFailure(ctx, msg, err)
	}

	job, err = e.storage.GetScrapeJob(ctx, msg.JobID)
	if err != nil {
		return err
	}
	job.Progress = progressRecorded
	job.ResultPath = archivePath
	if result.Success {
		job.Status = models.JobStatusCompleted
		job.Error = ""
	} else {
		// Script ran to completion but reported failure itself
		job.Status = models.JobStatusFailed
		job.Error = result.Error
	}
	if err := e.storage.SaveScrapeJob(ctx, job); err != nil {
		return err
	}

	e.logger.Info().
		Str("scraper", scraper.Name).
		Str("job_id", msg.JobID).
		Bool("success", result.Success).
		Int("count", result.Count).
		Msg("Scrape finished")

	return nil
}

// recordFailure writes a failure artifact and moves the job to failed
func (e *Executor) recordFailure(ctx context.Context, msg models.ScrapeMessage, cause error) error {
	artifact := &models.ScrapeResult{
		Success: false,
		Source:  msg.ScraperName,
		Error:   cause.Error(),
	}
	var ex *goja.Exception
	if errors.As(cause, &ex) {
		artifact.Stack = ex.String()
	}

	archivePath, err := e.results.Save(msg.ScraperName, artifact)
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("scraper", msg.ScraperName).
			Msg("Failed to write failure artifact")
	}

	job, err := e.storage.GetScrapeJob(ctx, msg.JobID)
	if err != nil {
		return err
	}
	job.Status = models.JobStatusFailed
	job.Progress = progressRecorded
	job.ResultPath = archivePath
	job.Error = cause.Error()
	if err := e.storage.SaveScrapeJob(ctx, job); err != nil {
		return err
	}

	e.logger.Warn().
		Str("scraper", msg.ScraperName).
		Str("job_id", msg.JobID).
		Str("cause", cause.Error()).
		Msg("Scrape failed")

	return nil
}

func (e *Executor) updateProgress(ctx context.Context, jobID string, progress int) error {
	job, err := e.storage.GetScrapeJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = models.JobStatusProcessing
	job.Progress = progress
	return e.storage.SaveScrapeJob(ctx, job)
}

func (e *Executor) failJob(ctx context.Context, jobID, cause string) {
	job, err := e.storage.GetScrapeJob(ctx, jobID)
	if err != nil {
		return
	}
	job.Status = models.JobStatusFailed
	job.Error = cause
	if err := e.storage.SaveScrapeJob(ctx, job); err != nil {
		e.logger.Error().
			Err(err).
			Str("job_id", jobID).
			Msg("Failed to persist job failure")
	}
}
