package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/common"
	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
)

// WebhookNotifier posts offer events to a configured URL. Notification is
// best effort: every failure is logged and swallowed so a dead webhook can
// never affect the request that triggered it. An empty URL disables it.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger arbor.ILogger
}

var _ interfaces.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a notifier from webhook configuration
func NewWebhookNotifier(cfg *common.WebhookConfig, logger arbor.ILogger) *WebhookNotifier {
	return &WebhookNotifier{
		url: cfg.URL,
		client: &http.Client{
			Timeout: common.ParseDurationOr(cfg.Timeout, 10*time.Second),
		},
		logger: logger,
	}
}

// NotifyOfferCreated posts a new-offer event to the webhook
func (n *WebhookNotifier) NotifyOfferCreated(ctx context.Context, event *models.OfferEvent) {
	if n.url == "" {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn().Err(err).Msg("Failed to encode offer event")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn().Err(err).Msg("Failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn().
			Err(err).
			Str("offer_id", event.ID).
			Msg("Webhook notification failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.logger.Warn().
			Str("offer_id", event.ID).
			Int("status", resp.StatusCode).
			Msg("Webhook notification rejected")
		return
	}

	n.logger.Debug().
		Str("offer_id", event.ID).
		Msg("Webhook notification sent")
}
