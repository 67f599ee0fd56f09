package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
)

// WorkflowHandler handles HTTP requests for document-generation workflows
type WorkflowHandler struct {
	orchestrator interfaces.WorkflowOrchestrator
	validate     *validator.Validate
	logger       arbor.ILogger
}

// NewWorkflowHandler creates a new WorkflowHandler
func NewWorkflowHandler(orchestrator interfaces.WorkflowOrchestrator, logger arbor.ILogger) *WorkflowHandler {
	return &WorkflowHandler{
		orchestrator: orchestrator,
		validate:     validator.New(),
		logger:       logger,
	}
}

// CreateWorkflowHandler handles POST /api/workflow. The response is 202:
// generation happens asynchronously and the client polls the status
// endpoint with the returned ID.
func (h *WorkflowHandler) CreateWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.WorkflowRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	workflowID, err := h.orchestrator.Submit(r.Context(), &req)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to submit workflow")
		WriteError(w, http.StatusInternalServerError, "Failed to create workflow")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"workflowId": workflowID,
		"status":     models.JobStatusPending,
		"progress":   0,
	})
}

// GetWorkflowStatusHandler handles GET /api/workflow/{id}/status
func (h *WorkflowHandler) GetWorkflowStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/workflow/"), "/status")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing workflow ID")
		return
	}

	wf, err := h.orchestrator.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Workflow not found")
			return
		}
		h.logger.Error().Err(err).Str("workflow_id", id).Msg("Failed to load workflow")
		WriteError(w, http.StatusInternalServerError, "Failed to load workflow")
		return
	}

	resp := map[string]interface{}{
		"workflowId":  wf.ID,
		"status":      wf.Status,
		"progress":    wf.Progress,
		"currentStep": wf.CurrentStep,
		"createdAt":   wf.CreatedAt,
		"updatedAt":   wf.UpdatedAt,
	}
	if wf.Result != nil {
		resp["result"] = wf.Result
	}
	if wf.Error != "" {
		resp["error"] = wf.Error
	}

	WriteJSON(w, http.StatusOK, resp)
}
