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

// WorkflowStorage implements interfaces.WorkflowStorage for Badger
type WorkflowStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// Compile-time assertion
var _ interfaces.WorkflowStorage = (*WorkflowStorage)(nil)

// NewWorkflowStorage creates a new WorkflowStorage instance
func NewWorkflowStorage(db *BadgerDB, logger arbor.ILogger) *WorkflowStorage {
	return &WorkflowStorage{
		db:     db,
		logger: logger,
	}
}

func (s *WorkflowStorage) SaveWorkflow(ctx context.Context, wf *models.Workflow) error {
	if wf.ID == "" {
		return fmt.Errorf("workflow ID is required")
	}
	wf.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(wf.ID, wf); err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}
	return nil
}

func (s *WorkflowStorage) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	var wf models.Workflow
	if err := s.db.Store().Get(id, &wf); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return &wf, nil
}

func (s *WorkflowStorage) ListWorkflows(ctx context.Context, limit, offset int) ([]*models.Workflow, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var workflows []models.Workflow
	if err := s.db.Store().Find(&workflows, query); err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	result := make([]*models.Workflow, len(workflows))
	for i := range workflows {
		result[i] = &workflows[i]
	}
	return result, nil
}

func (s *WorkflowStorage) ListWorkflowsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Workflow, error) {
	var workflows []models.Workflow
	if err := s.db.Store().Find(&workflows, badgerhold.Where("Status").Eq(status)); err != nil {
		return nil, fmt.Errorf("failed to list workflows by status: %w", err)
	}

	result := make([]*models.Workflow, len(workflows))
	for i := range workflows {
		result[i] = &workflows[i]
	}
	return result, nil
}
