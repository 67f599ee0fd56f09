package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/common"
	"github.com/applyforge/applyforge/internal/queue"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	queueMgr  *queue.Manager
	startedAt time.Time
	logger    arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(queueMgr *queue.Manager, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		queueMgr:  queueMgr,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	pending, err := h.queueMgr.Pending(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read queue depth")
		pending = -1
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"version":       common.GetVersion(),
		"uptime":        time.Since(h.startedAt).Round(time.Second).String(),
		"queue_pending": pending,
	})
}
