package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/common"
	"github.com/applyforge/applyforge/internal/generators"
	"github.com/applyforge/applyforge/internal/handlers"
	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
	"github.com/applyforge/applyforge/internal/queue"
	"github.com/applyforge/applyforge/internal/scheduler"
	"github.com/applyforge/applyforge/internal/scrapers"
	"github.com/applyforge/applyforge/internal/services/notify"
	"github.com/applyforge/applyforge/internal/services/render"
	badgerstore "github.com/applyforge/applyforge/internal/storage/badger"
	"github.com/applyforge/applyforge/internal/workflow"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB              *badgerstore.BadgerDB
	WorkflowStorage interfaces.WorkflowStorage
	ScraperStorage  interfaces.ScraperStorage
	OfferStorage    interfaces.OfferStorage

	// Queue
	QueueManager *queue.Manager
	WorkerPool   *queue.WorkerPool

	// Services
	RenderEngine interfaces.RenderEngine
	Orchestrator *workflow.Orchestrator
	Executor     *scrapers.Executor
	Scheduler    *scheduler.Service
	Notifier     interfaces.Notifier

	// Handlers
	WorkflowHandler *handlers.WorkflowHandler
	ScraperHandler  *handlers.ScraperHandler
	OfferHandler    *handlers.OfferHandler
	StatusHandler   *handlers.StatusHandler
}

// New wires the application: config -> storage -> queue -> services ->
// handlers. Interrupted jobs are reconciled before any worker starts.
func New(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	// Storage
	db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	a.DB = db
	a.WorkflowStorage = badgerstore.NewWorkflowStorage(db, logger)
	a.ScraperStorage = badgerstore.NewScraperStorage(db, logger)
	a.OfferStorage = badgerstore.NewOfferStorage(db, logger)

	// Queue
	a.QueueManager, err = queue.NewManager(
		db.DB(),
		config.Queue.QueueName,
		common.ParseDurationOr(config.Queue.VisibilityTimeout, 5*time.Minute),
		config.Queue.MaxReceive,
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create queue: %w", err)
	}
	a.WorkerPool = queue.NewWorkerPool(
		a.QueueManager,
		config.Queue.Concurrency,
		common.ParseDurationOr(config.Queue.PollInterval, time.Second),
		logger,
	)

	// Render engine, optional: generators fall back to native rendering
	if config.Render.Enabled {
		engine, err := render.NewEngine(&config.Render, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Browser render engine unavailable, using native rendering")
		} else {
			a.RenderEngine = engine
		}
	}

	// Generators
	siteGen, err := generators.NewSiteGenerator(&config.Storage.Filesystem, &config.Generators, a.RenderEngine, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	qrGen, err := generators.NewQRGenerator(&config.Storage.Filesystem, &config.Generators, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	letterGen, err := generators.NewLetterGenerator(&config.Storage.Filesystem, &config.Generators, a.RenderEngine, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Workflow orchestrator
	a.Orchestrator = workflow.NewOrchestrator(
		a.WorkflowStorage, siteGen, qrGen, letterGen, config.Server.BaseURL, logger)
	if err := a.Orchestrator.RecoverInterrupted(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to reconcile workflows: %w", err)
	}

	// Scrape executor
	runner, err := scrapers.NewRunner(&config.Scrapers, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	results, err := scrapers.NewResultStore(config.Storage.Filesystem.ScraperData, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Executor = scrapers.NewExecutor(a.ScraperStorage, a.QueueManager, runner, results, logger)
	a.Executor.Register(a.WorkerPool)
	if err := a.reconcileScrapeJobs(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to reconcile scrape jobs: %w", err)
	}

	// Notifier
	a.Notifier = notify.NewWebhookNotifier(&config.Webhook, logger)

	// Scheduler
	if config.Scheduler.Enabled {
		a.Scheduler = scheduler.NewService(a.ScraperStorage, a.Executor, logger)
	}

	// Handlers
	a.WorkflowHandler = handlers.NewWorkflowHandler(a.Orchestrator, logger)
	var refresher handlers.ScheduleRefresher
	if a.Scheduler != nil {
		refresher = a.Scheduler
	}
	a.ScraperHandler = handlers.NewScraperHandler(a.ScraperStorage, a.Executor, refresher, logger)
	a.OfferHandler = handlers.NewOfferHandler(a.OfferStorage, a.Notifier, logger)
	a.StatusHandler = handlers.NewStatusHandler(a.QueueManager, logger)

	logger.Info().Msg("Application initialized")
	return a, nil
}

// Start launches the background components
func (a *App) Start(ctx context.Context) error {
	a.WorkerPool.Start()
	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts the application down in reverse dependency order
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.WorkerPool != nil {
		a.WorkerPool.Stop()
	}
	if a.Orchestrator != nil {
		a.Orchestrator.Wait()
	}
	if a.RenderEngine != nil {
		a.RenderEngine.Shutdown()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}

// reconcileScrapeJobs marks scrape jobs interrupted by a previous process
// as failed. A surviving queue message may still reference such a job; the
// handler drops messages whose job is already terminal.
func (a *App) reconcileScrapeJobs(ctx context.Context) error {
	scraperList, err := a.ScraperStorage.ListScrapers(ctx)
	if err != nil {
		return err
	}
	for _, scraper := range scraperList {
		jobs, err := a.ScraperStorage.ListScrapeJobs(ctx, scraper.Name)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			if job.Status.IsTerminal() {
				continue
			}
			job.Status = models.JobStatusFailed
			job.Error = "interrupted by restart"
			if err := a.ScraperStorage.SaveScrapeJob(ctx, job); err != nil {
				return err
			}
			a.Logger.Warn().
				Str("job_id", job.ID).
				Str("scraper", job.ScraperName).
				Msg("Marked interrupted scrape job as failed")
		}
	}
	return nil
}
