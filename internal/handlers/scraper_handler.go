package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
	"github.com/applyforge/applyforge/internal/scrapers"
)

// ScheduleRefresher reconciles scheduled runs after scraper mutations
type ScheduleRefresher interface {
	Refresh(ctx context.Context) error
}

// ScraperHandler handles HTTP requests for scraper definitions, queued
// executions and stored results
type ScraperHandler struct {
	storage   interfaces.ScraperStorage
	executor  *scrapers.Executor
	scheduler ScheduleRefresher // may be nil when scheduling is disabled
	logger    arbor.ILogger
}

// NewScraperHandler creates a new ScraperHandler
func NewScraperHandler(storage interfaces.ScraperStorage, executor *scrapers.Executor, scheduler ScheduleRefresher, logger arbor.ILogger) *ScraperHandler {
	return &ScraperHandler{
		storage:   storage,
		executor:  executor,
		scheduler: scheduler,
		logger:    logger,
	}
}

// CreateScraperRequest is the POST /api/scrapers payload. Script is
// optional: when absent a starter script is generated from the URL.
type CreateScraperRequest struct {
	Name     string                 `json:"name"`
	URL      string                 `json:"url"`
	Script   string                 `json:"script,omitempty"`
	Config   map[string]interface{} `json:"config,omitempty"`
	IsActive *bool                  `json:"isActive,omitempty"`
}

// ListScrapersHandler handles GET /api/scrapers
func (h *ScraperHandler) ListScrapersHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.storage.ListScrapers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list scrapers")
		WriteError(w, http.StatusInternalServerError, "Failed to list scrapers")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scrapers": list,
		"count":    len(list),
	})
}

// CreateScraperHandler handles POST /api/scrapers
func (h *ScraperHandler) CreateScraperHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateScraperRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" || req.URL == "" {
		WriteError(w, http.StatusBadRequest, "name and url are required")
		return
	}

	if _, err := h.storage.GetScraperByName(r.Context(), req.Name); err == nil {
		WriteError(w, http.StatusConflict, "Scraper already exists: "+req.Name)
		return
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		h.logger.Error().Err(err).Msg("Failed to check scraper name")
		WriteError(w, http.StatusInternalServerError, "Failed to create scraper")
		return
	}

	script := req.Script
	if script == "" {
		generated, err := scrapers.GenerateScript(req.Name, req.URL, req.Config)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to generate scraper script")
			WriteError(w, http.StatusInternalServerError, "Failed to generate scraper script")
			return
		}
		script = generated
	}

	scraper := models.NewScraper(req.Name, req.URL, script, req.Config)
	if req.IsActive != nil {
		scraper.IsActive = *req.IsActive
	}

	if err := h.storage.SaveScraper(r.Context(), scraper); err != nil {
		h.logger.Error().Err(err).Str("scraper", req.Name).Msg("Failed to save scraper")
		WriteError(w, http.StatusInternalServerError, "Failed to create scraper")
		return
	}

	h.refreshSchedules(r.Context())
	WriteJSON(w, http.StatusCreated, scraper)
}

// GetScraperHandler handles GET /api/scrapers/{name}
func (h *ScraperHandler) GetScraperHandler(w http.ResponseWriter, r *http.Request, name string) {
	scraper, err := h.storage.GetScraperByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Scraper not found: "+name)
			return
		}
		h.logger.Error().Err(err).Str("scraper", name).Msg("Failed to load scraper")
		WriteError(w, http.StatusInternalServerError, "Failed to load scraper")
		return
	}
	WriteJSON(w, http.StatusOK, scraper)
}

// DeleteScraperHandler handles DELETE /api/scrapers/{name}
func (h *ScraperHandler) DeleteScraperHandler(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.storage.DeleteScraper(r.Context(), name); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Scraper not found: "+name)
			return
		}
		h.logger.Error().Err(err).Str("scraper", name).Msg("Failed to delete scraper")
		WriteError(w, http.StatusInternalServerError, "Failed to delete scraper")
		return
	}

	h.refreshSchedules(r.Context())
	WriteSuccess(w, "Scraper deleted: "+name)
}

// ExecuteScraperHandler handles POST /api/scrapers/execute. The run is
// queued; the 202 response carries the job ID for status polling.
func (h *ScraperHandler) ExecuteScraperHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		ScraperName string                 `json:"scraperName"`
		Params      map[string]interface{} `json:"params,omitempty"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ScraperName == "" {
		WriteError(w, http.StatusBadRequest, "scraperName is required")
		return
	}

	handle, err := h.executor.Execute(r.Context(), req.ScraperName, req.Params)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Scraper not found: "+req.ScraperName)
			return
		}
		h.logger.Error().Err(err).Str("scraper", req.ScraperName).Msg("Failed to queue scrape")
		WriteError(w, http.StatusInternalServerError, "Failed to queue scrape")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"jobId":       handle.JobID,
		"scraperName": handle.ScraperName,
		"status":      models.JobStatusPending,
	})
}

// GetScrapeJobHandler handles GET /api/scrapers/jobs/{id}
func (h *ScraperHandler) GetScrapeJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.storage.GetScrapeJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Scrape job not found: "+jobID)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load scrape job")
		WriteError(w, http.StatusInternalServerError, "Failed to load scrape job")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ListResultsHandler handles GET /api/scrapers/{name}/results
func (h *ScraperHandler) ListResultsHandler(w http.ResponseWriter, r *http.Request, name string) {
	results, err := h.executor.Results().List(name)
	if err != nil {
		h.logger.Error().Err(err).Str("scraper", name).Msg("Failed to read results")
		WriteError(w, http.StatusInternalServerError, "Failed to read results")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scraperName": name,
		"results":     results,
		"count":       len(results),
	})
}

// GetLatestResultHandler handles GET /api/scrapers/{name}/results/latest.
// A scraper with no results yet gets 200 with a null result, not 404.
func (h *ScraperHandler) GetLatestResultHandler(w http.ResponseWriter, r *http.Request, name string) {
	result, err := h.executor.Results().Latest(name)
	if err != nil {
		h.logger.Error().Err(err).Str("scraper", name).Msg("Failed to read latest result")
		WriteError(w, http.StatusInternalServerError, "Failed to read latest result")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scraperName": name,
		"result":      result,
	})
}

func (h *ScraperHandler) refreshSchedules(ctx context.Context) {
	if h.scheduler == nil {
		return
	}
	if err := h.scheduler.Refresh(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to refresh scraper schedules")
	}
}
