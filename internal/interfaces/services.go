package interfaces

import (
	"context"

	"github.com/applyforge/applyforge/internal/models"
)

// RenderEngine turns an HTML document into PDF bytes.
// Implementations must be safe for concurrent use by unrelated renders.
type RenderEngine interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
	Shutdown()
}

// ScriptRunner executes a runtime-supplied scrape script in an isolated,
// disposable unit. The materialized script artifact is always removed after
// the run, whether it succeeded, returned a failure value or raised.
type ScriptRunner interface {
	Run(ctx context.Context, scraperName, script string, params map[string]interface{}) (*models.ScrapeResult, error)
}

// Notifier sends best-effort outbound events. Implementations log and
// swallow failures; a notify error never reaches the caller.
type Notifier interface {
	NotifyOfferCreated(ctx context.Context, event *models.OfferEvent)
}

// WorkflowOrchestrator drives multi-stage document generation
type WorkflowOrchestrator interface {
	Submit(ctx context.Context, req *models.WorkflowRequest) (string, error)
	GetStatus(ctx context.Context, id string) (*models.Workflow, error)
}
