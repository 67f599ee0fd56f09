package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
)

// OfferStorage implements interfaces.OfferStorage for Badger
type OfferStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.OfferStorage = (*OfferStorage)(nil)

// NewOfferStorage creates a new OfferStorage instance
func NewOfferStorage(db *BadgerDB, logger arbor.ILogger) *OfferStorage {
	return &OfferStorage{
		db:     db,
		logger: logger,
	}
}

// CreateOffer inserts a new offer. Name, slug and URL are unique; a
// collision returns ErrDuplicate.
func (s *OfferStorage) CreateOffer(ctx context.Context, offer *models.JobOffer) error {
	if offer.ID == "" {
		return fmt.Errorf("offer ID is required")
	}

	if err := s.db.Store().Insert(offer.ID, offer); err != nil {
		if errors.Is(err, badgerhold.ErrUniqueExists) {
			return interfaces.ErrDuplicate
		}
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func (s *OfferStorage) UpdateOffer(ctx context.Context, offer *models.JobOffer) error {
	offer.UpdatedAt = time.Now()
	if err := s.db.Store().Update(offer.ID, offer); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to update offer: %w", err)
	}
	return nil
}

func (s *OfferStorage) GetOffer(ctx context.Context, id string) (*models.JobOffer, error) {
	var offer models.JobOffer
	if err := s.db.Store().Get(id, &offer); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return &offer, nil
}

func (s *OfferStorage) GetOfferBySlug(ctx context.Context, slug string) (*models.JobOffer, error) {
	var offers []models.JobOffer
	if err := s.db.Store().Find(&offers, badgerhold.Where("Slug").Eq(slug).Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to find offer by slug: %w", err)
	}
	if len(offers) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &offers[0], nil
}

func (s *OfferStorage) ListOffers(ctx context.Context) ([]*models.JobOffer, error) {
	var offers []models.JobOffer
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&offers, query); err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}

	result := make([]*models.JobOffer, len(offers))
	for i := range offers {
		result[i] = &offers[i]
	}
	return result, nil
}

func (s *OfferStorage) DeleteOffer(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.JobOffer{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to delete offer: %w", err)
	}
	return nil
}
