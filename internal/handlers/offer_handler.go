package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
)

var slugCleanup = regexp.MustCompile(`[^a-z0-9]+`)

// OfferHandler handles HTTP requests for tracked job offers
type OfferHandler struct {
	storage  interfaces.OfferStorage
	notifier interfaces.Notifier
	logger   arbor.ILogger
}

// NewOfferHandler creates a new OfferHandler
func NewOfferHandler(storage interfaces.OfferStorage, notifier interfaces.Notifier, logger arbor.ILogger) *OfferHandler {
	return &OfferHandler{
		storage:  storage,
		notifier: notifier,
		logger:   logger,
	}
}

// ListOffersHandler handles GET /api/offers
func (h *OfferHandler) ListOffersHandler(w http.ResponseWriter, r *http.Request) {
	offers, err := h.storage.ListOffers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list offers")
		WriteError(w, http.StatusInternalServerError, "Failed to list offers")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"offers": offers,
		"count":  len(offers),
	})
}

// CreateOfferHandler handles POST /api/offers. Name, slug and URL are each
// unique; a collision on any of them is a 409. Creation fires the offer
// webhook without waiting on it.
func (h *OfferHandler) CreateOfferHandler(w http.ResponseWriter, r *http.Request) {
	var req models.JobOffer
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" || req.URL == "" {
		WriteError(w, http.StatusBadRequest, "name and url are required")
		return
	}

	offer := models.NewJobOffer()
	offer.Name = req.Name
	offer.URL = req.URL
	offer.Slug = req.Slug
	if offer.Slug == "" {
		offer.Slug = Slugify(req.Name)
	}
	offer.CompanyName = req.CompanyName
	offer.JobTitle = req.JobTitle
	offer.ResumeJob = req.ResumeJob
	offer.CVPersonalization = req.CVPersonalization
	offer.Salary = req.Salary
	offer.RemotePolicy = req.RemotePolicy
	offer.CVMatchScore = req.CVMatchScore
	offer.CVMatchScoreReason = req.CVMatchScoreReason
	if req.Status != "" {
		offer.Status = req.Status
	}
	offer.RerunWorkflow = req.RerunWorkflow

	if err := h.storage.CreateOffer(r.Context(), offer); err != nil {
		if errors.Is(err, interfaces.ErrDuplicate) {
			WriteError(w, http.StatusConflict, "Offer with the same name, slug or url already exists")
			return
		}
		h.logger.Error().Err(err).Str("offer", offer.Name).Msg("Failed to create offer")
		WriteError(w, http.StatusInternalServerError, "Failed to create offer")
		return
	}

	// Fire-and-forget: the response never waits on the webhook
	go h.notifier.NotifyOfferCreated(context.Background(), &models.OfferEvent{
		ID:        offer.ID,
		Name:      offer.Name,
		Slug:      offer.Slug,
		URL:       offer.URL,
		CreatedAt: offer.CreatedAt,
	})

	WriteJSON(w, http.StatusCreated, offer)
}

// GetOfferHandler handles GET /api/offers/{id}
func (h *OfferHandler) GetOfferHandler(w http.ResponseWriter, r *http.Request, id string) {
	offer, err := h.storage.GetOffer(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Offer not found: "+id)
			return
		}
		h.logger.Error().Err(err).Str("offer_id", id).Msg("Failed to load offer")
		WriteError(w, http.StatusInternalServerError, "Failed to load offer")
		return
	}
	WriteJSON(w, http.StatusOK, offer)
}

// GetOfferBySlugHandler handles GET /api/offers/slug/{slug}
func (h *OfferHandler) GetOfferBySlugHandler(w http.ResponseWriter, r *http.Request, slug string) {
	offer, err := h.storage.GetOfferBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Offer not found: "+slug)
			return
		}
		h.logger.Error().Err(err).Str("slug", slug).Msg("Failed to load offer")
		WriteError(w, http.StatusInternalServerError, "Failed to load offer")
		return
	}
	WriteJSON(w, http.StatusOK, offer)
}

// UpdateOfferHandler handles PUT /api/offers/{id}
func (h *OfferHandler) UpdateOfferHandler(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := h.storage.GetOffer(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Offer not found: "+id)
			return
		}
		h.logger.Error().Err(err).Str("offer_id", id).Msg("Failed to load offer")
		WriteError(w, http.StatusInternalServerError, "Failed to load offer")
		return
	}

	var req models.JobOffer
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// Identity fields are immutable after creation
	req.ID = existing.ID
	req.Name = existing.Name
	req.Slug = existing.Slug
	req.URL = existing.URL
	req.CreatedAt = existing.CreatedAt

	if err := h.storage.UpdateOffer(r.Context(), &req); err != nil {
		h.logger.Error().Err(err).Str("offer_id", id).Msg("Failed to update offer")
		WriteError(w, http.StatusInternalServerError, "Failed to update offer")
		return
	}
	WriteJSON(w, http.StatusOK, &req)
}

// DeleteOfferHandler handles DELETE /api/offers/{id}
func (h *OfferHandler) DeleteOfferHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.storage.DeleteOffer(r.Context(), id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Offer not found: "+id)
			return
		}
		h.logger.Error().Err(err).Str("offer_id", id).Msg("Failed to delete offer")
		WriteError(w, http.StatusInternalServerError, "Failed to delete offer")
		return
	}
	WriteSuccess(w, "Offer deleted: "+id)
}

// Slugify derives a URL-safe slug from an offer name
func Slugify(name string) string {
	slug := slugCleanup.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
