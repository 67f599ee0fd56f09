package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/generators"
	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
)

// Stage progress checkpoints. These are fixed presentation constants that
// polling clients rely on; they carry no performance meaning.
const (
	progressSiteHTML  = 20
	progressSitePDF   = 40
	progressSiteURL   = 50
	progressQR        = 70
	progressLetter    = 90
	progressCompleted = 100
)

const hostedSitesPrefix = "/hosted-sites/"

// Orchestrator drives the multi-stage document-generation workflow.
//
// Submit persists a pending record and returns immediately; a supervised
// background goroutine executes the stages in fixed order, checkpointing
// progress into the workflow record after each stage. The first failing
// stage aborts the rest: the record goes to failed with the triggering
// cause, and artifacts from earlier stages are left on disk.
type Orchestrator struct {
	storage interfaces.WorkflowStorage
	sites   *generators.SiteGenerator
	qr      *generators.QRGenerator
	letters *generators.LetterGenerator
	baseURL string
	logger  arbor.ILogger
	wg      sync.WaitGroup
}

var _ interfaces.WorkflowOrchestrator = (*Orchestrator)(nil)

// NewOrchestrator creates a workflow orchestrator
func NewOrchestrator(
	storage interfaces.WorkflowStorage,
	sites *generators.SiteGenerator,
	qr *generators.QRGenerator,
	letters *generators.LetterGenerator,
	baseURL string,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		storage: storage,
		sites:   sites,
		qr:      qr,
		letters: letters,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// RecoverInterrupted marks workflows left in pending/processing by a
// previous process as failed. Called once at startup, before Submit is
// reachable, so every record is guaranteed to reach a terminal state even
// across restarts.
func (o *Orchestrator) RecoverInterrupted(ctx context.Context) error {
	for _, status := range []models.JobStatus{models.JobStatusPending, models.JobStatusProcessing} {
		workflows, err := o.storage.ListWorkflowsByStatus(ctx, status)
		if err != nil {
			return fmt.Errorf("failed to list %s workflows: %w", status, err)
		}

		for _, wf := range workflows {
			wf.Status = models.JobStatusFailed
			wf.Error = "interrupted by restart"
			if err := o.storage.SaveWorkflow(ctx, wf); err != nil {
				return fmt.Errorf("failed to mark workflow %s failed: %w", wf.ID, err)
			}
			o.logger.Warn().
				Str("workflow_id", wf.ID).
				Msg("Marked interrupted workflow as failed")
		}
	}
	return nil
}

// Submit creates a workflow record and schedules background execution.
// It returns the workflow ID without waiting on any stage.
func (o *Orchestrator) Submit(ctx context.Context, req *models.WorkflowRequest) (string, error) {
	wf := models.NewWorkflow(req)

	if err := o.storage.SaveWorkflow(ctx, wf); err != nil {
		return "", fmt.Errorf("failed to create workflow: %w", err)
	}

	o.logger.Info().
		Str("workflow_id", wf.ID).
		Str("company", req.CompanyInfo.Name).
		Msg("Workflow created")

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		// Detached from the request context: the submission call never
		// blocks on execution and execution outlives the request.
		o.process(context.Background(), wf.ID, req)
	}()

	return wf.ID, nil
}

// GetStatus returns the current workflow record
func (o *Orchestrator) GetStatus(ctx context.Context, id string) (*models.Workflow, error) {
	return o.storage.GetWorkflow(ctx, id)
}

// Wait blocks until all in-flight workflow executions finish. Used on
// shutdown and by tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) process(ctx context.Context, workflowID string, req *models.WorkflowRequest) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("workflow_id", workflowID).
				Msgf("Workflow panic recovered: %v", r)
			o.markFailed(ctx, workflowID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	o.logger.Info().
		Str("workflow_id", workflowID).
		Msg("Processing workflow")

	siteData := transformSiteData(&req.SiteContent)

	// Stage 1: site HTML
	if err := o.updateProgress(ctx, workflowID, "generating_site_html", progressSiteHTML); err != nil {
		o.markFailed(ctx, workflowID, err.Error())
		return
	}
	siteHTMLPath, err := o.sites.GenerateHTML(ctx, req.SiteContent.Template, siteData)
	if err != nil {
		o.markFailed(ctx, workflowID, err.Error())
		return
	}

	// Stage 2: site PDF
	if err := o.updateProgress(ctx, workflowID, "generating_site_pdf", progressSitePDF); err != nil {
		o.markFailed(ctx, workflowID, err.Error())
		return
	}
	sitePDF, err := o.sites.GeneratePDF(ctx, req.SiteContent.Template, siteData)
	if err != nil {
		o.markFailed(ctx, workflowID, err.Error())
		return
	}

	// Stage 3: public site URL
	if err := o.updateProgress(ctx, workflowID, "creating_site_url", progressSiteURL); err != nil {
		o.markFailed(ctx, workflowID, err.Error())
		return
	}
	siteName := strings.TrimSuffix(filepath.Base(siteHTMLPath), ".html")
	siteURL := hostedSitesPrefix + siteName

	// Stage 4: QR code encoding the public locator
	if err := o.updateProgress(ctx, workflowID, "generating_qr", progressQR); err != nil {
		o.markFailed(ctx, workflowID, err.Error())
		return
	}
	qrStyle := req.Options.QRStyle
	if qrStyle == "" {
		qrStyle = "elegant"
	}
	qrResult, err := o.qr.Generate(o.baseURL+siteURL, qrStyle)
	if err != nil {
		o.markFailed(ctx, workflowID, err.Error())
		return
	}

	// Stage 5: letter embedding the QR
	if err := o.updateProgress(ctx, workflowID, "generating_letter", progressLetter); err != nil {
		o.markFailed(ctx, workflowID, err.Error())
		return
	}
	letterPDF, err := o.letters.GenerateWithQR(ctx, req.LetterContent.Template, buildLetterData(req), qrResult.DataURL)
	if err != nil {
		o.markFailed(ctx, workflowID, err.Error())
		return
	}

	// Stage 6: persist result
	if err := o.complete(ctx, workflowID, &models.WorkflowResult{
		SiteHTMLPath:  siteHTMLPath,
		SitePDFPath:   sitePDF,
		QRImagePath:   qrResult.Filename,
		LetterPDFPath: letterPDF,
		SiteURL:       siteURL,
	}); err != nil {
		o.markFailed(ctx, workflowID, err.Error())
		return
	}

	o.logger.Info().
		Str("workflow_id", workflowID).
		Msg("Workflow completed")
}

// transformSiteData maps the request's site content onto template placeholders
func transformSiteData(site *models.SiteContent) map[string]interface{} {
	return map[string]interface{}{
		"main-title":      site.Title,
		"company-name":    site.Title,
		"subtitle":        site.Subtitle,
		"about":           site.About,
		"matching-points": site.MatchingPoints,
		"stats":           site.Stats,
	}
}

// buildLetterData maps the request onto letter template placeholders
func buildLetterData(req *models.WorkflowRequest) map[string]interface{} {
	contact := req.PersonalInfo.Email
	if req.PersonalInfo.Phone != "" {
		contact += " | " + req.PersonalInfo.Phone
	}

	return map[string]interface{}{
		"sender-name":          req.PersonalInfo.Name,
		"sender-email":         req.PersonalInfo.Email,
		"sender-phone":         req.PersonalInfo.Phone,
		"company-name":         req.CompanyInfo.Name,
		"position":             req.CompanyInfo.Position,
		"Date":                 time.Now().Format("02/01/2006"),
		"intro-paragraph":      req.LetterContent.Introduction,
		"matching-description": req.LetterContent.Motivation,
		"closing-paragraph":    req.LetterContent.Closing,
		"contact-info":         contact,
	}
}

func (o *Orchestrator) updateProgress(ctx context.Context, workflowID, step string, progress int) error {
	wf, err := o.storage.GetWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}

	wf.Status = models.JobStatusProcessing
	wf.CurrentStep = step
	wf.Progress = progress

	if err := o.storage.SaveWorkflow(ctx, wf); err != nil {
		return err
	}

	o.logger.Debug().
		Str("workflow_id", workflowID).
		Str("step", step).
		Int("progress", progress).
		Msg("Workflow progress")

	return nil
}

func (o *Orchestrator) complete(ctx context.Context, workflowID string, result *models.WorkflowResult) error {
	wf, err := o.storage.GetWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}

	wf.Status = models.JobStatusCompleted
	wf.CurrentStep = "completed"
	wf.Progress = progressCompleted
	wf.Result = result
	wf.Error = ""

	return o.storage.SaveWorkflow(ctx, wf)
}

func (o *Orchestrator) markFailed(ctx context.Context, workflowID, cause string) {
	wf, err := o.storage.GetWorkflow(ctx, workflowID)
	if err != nil {
		o.logger.Error().
			Err(err).
			Str("workflow_id", workflowID).
			Msg("Failed to load workflow for failure update")
		return
	}

	wf.Status = models.JobStatusFailed
	wf.Error = cause
	wf.Result = nil

	if err := o.storage.SaveWorkflow(ctx, wf); err != nil {
		o.logger.Error().
			Err(err).
			Str("workflow_id", workflowID).
			Msg("Failed to persist workflow failure")
	}

	o.logger.Warn().
		Str("workflow_id", workflowID).
		Str("cause", cause).
		Msg("Workflow failed")
}
