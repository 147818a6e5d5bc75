// Package webhook delivers trigger events to registered endpoints. Each
// delivery is isolated: one endpoint failing never affects another, and no
// failure here ever aborts the transition that produced the event.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/easeworks/propgen/pkg/models"
)

const defaultTimeoutSeconds = 30

// Notifier posts webhook envelopes to registered endpoints.
type Notifier struct {
	client *http.Client
	logger *slog.Logger
}

// NewNotifier creates a notifier with the given per-delivery timeout.
func NewNotifier(logger *slog.Logger, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds * time.Second
	}

	return &Notifier{
		client: &http.Client{Timeout: timeout},
		logger: logger.With("module", "webhook_notifier"),
	}
}

// Deliver posts the envelope to one registration and reports the outcome.
// Transport errors and non-2xx responses are recorded, never returned.
func (n *Notifier) Deliver(ctx context.Context, registration *models.WebhookRegistration, envelope *models.WebhookEnvelope) models.WebhookDeliveryResult {
	result := models.WebhookDeliveryResult{WebhookID: registration.ID}

	body, err := json.Marshal(envelope)
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal envelope: %v", err)

		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, registration.URL, bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)

		return result
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "propgen-webhook/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("delivery failed: %v", err)
		n.logger.WarnContext(ctx, "Webhook delivery failed", "webhook_id", registration.ID, "error", err)

		return result
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)

		err := resp.Body.Close()
		if err != nil {
			n.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	result.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Error = fmt.Sprintf("endpoint returned status %d", resp.StatusCode)
		n.logger.WarnContext(ctx, "Webhook endpoint rejected delivery",
			"webhook_id", registration.ID, "status", resp.StatusCode)

		return result
	}

	result.Success = true

	return result
}

// NotifyAll delivers the envelope to every registration sequentially and
// returns one result per registration, in order.
func (n *Notifier) NotifyAll(ctx context.Context, registrations []*models.WebhookRegistration, envelope *models.WebhookEnvelope) []models.WebhookDeliveryResult {
	results := make([]models.WebhookDeliveryResult, 0, len(registrations))

	for _, registration := range registrations {
		results = append(results, n.Deliver(ctx, registration, envelope))
	}

	return results
}
