// Package outbox drains the side-effect outbox: webhook deliveries, SPIN
// content generation, and approval notifications enqueued by committed
// transitions.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/easeworks/propgen/pkg/downstream"
	"github.com/easeworks/propgen/pkg/eventbus"
	"github.com/easeworks/propgen/pkg/events"
	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/otelhelper"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/easeworks/propgen/pkg/webhook"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultBatchLimit  = 50
	defaultMaxAttempts = 8
	baseBackoff        = 30 * time.Second
	maxBackoff         = 1 * time.Hour
)

// Dispatcher claims due outbox events and executes them. Each event is
// retried with exponential backoff until it succeeds or exhausts its
// attempts; one event failing never blocks the rest of the batch.
type Dispatcher struct {
	persistence persistence.Persistence
	notifier    *webhook.Notifier
	downstream  *downstream.Client
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	batchLimit  int
	maxAttempts int
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher. The event bus and tracer are optional.
func NewDispatcher(
	p persistence.Persistence,
	notifier *webhook.Notifier,
	downstreamClient *downstream.Client,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		persistence: p,
		notifier:    notifier,
		downstream:  downstreamClient,
		eventBus:    eventBus,
		tracer:      tracer,
		batchLimit:  defaultBatchLimit,
		maxAttempts: defaultMaxAttempts,
		logger:      logger.With("module", "outbox_dispatcher"),
	}
}

// Sweep claims one batch of due events and dispatches them. It returns the
// number of events processed; per-event failures are rescheduled, not
// returned.
func (d *Dispatcher) Sweep(ctx context.Context) (int, error) {
	if d.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, d.tracer, "outbox.sweep")
		defer span.End()
	}

	claimed, err := d.persistence.OutboxRepository().ClaimDue(ctx, time.Now().UTC(), d.batchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to claim outbox events: %w", err)
	}

	for _, event := range claimed {
		d.dispatch(ctx, event)
	}

	return len(claimed), nil
}

func (d *Dispatcher) dispatch(ctx context.Context, event *models.OutboxEvent) {
	var span trace.Span

	if d.tracer != nil {
		attrs := []attribute.KeyValue{
			attribute.String(otelhelper.CompanyIDKey, event.CompanyID),
			attribute.String(otelhelper.EffectKindKey, string(event.Kind)),
			attribute.String(otelhelper.EventIDKey, event.ID),
		}

		switch event.Kind {
		case models.EffectWebhookDelivery:
			attrs = append(attrs, attribute.String(otelhelper.WebhookIDKey, stringValue(event.Payload, "webhook_id")))
		case models.EffectApprovalNotification:
			attrs = append(attrs, attribute.String(otelhelper.ApprovalIDKey, stringValue(event.Payload, "approval_id")))
		}

		ctx, span = otelhelper.StartSpan(ctx, d.tracer, "outbox.dispatch", attrs...)
		defer span.End()
	}

	var err error

	switch event.Kind {
	case models.EffectWebhookDelivery:
		err = d.deliverWebhook(ctx, event)
	case models.EffectSpinGeneration:
		err = d.downstream.GenerateSpinContent(ctx, event.CompanyID, mapValue(event.Payload, "risk_data"))
	case models.EffectApprovalNotification:
		err = d.downstream.SendApprovalNotification(ctx, event.CompanyID,
			stringValue(event.Payload, "approval_id"), mapValue(event.Payload, "proposal_data"))
	default:
		d.fail(ctx, event, fmt.Sprintf("unknown effect kind %q", event.Kind))

		return
	}

	if err != nil {
		if span != nil {
			otelhelper.SetError(span, err, attribute.String(otelhelper.EffectKindKey, string(event.Kind)))
		}

		d.retry(ctx, event, err)

		return
	}

	markErr := d.persistence.OutboxRepository().MarkDelivered(ctx, event.ID, time.Now().UTC())
	if markErr != nil {
		d.logger.ErrorContext(ctx, "Failed to mark outbox event delivered",
			"event_id", event.ID, "error", markErr)
	}
}

// deliverWebhook posts the stored envelope to its registration. A
// registration that was deleted or deactivated after enqueue is a permanent
// failure, not a retry.
func (d *Dispatcher) deliverWebhook(ctx context.Context, event *models.OutboxEvent) error {
	webhookID := stringValue(event.Payload, "webhook_id")

	registration, err := d.persistence.WebhookRepository().GetByID(ctx, webhookID)
	if err != nil {
		if persistence.IsWebhookNotFound(err) {
			d.fail(ctx, event, "webhook registration no longer exists")

			return nil
		}

		return fmt.Errorf("failed to load webhook registration: %w", err)
	}

	if !registration.Active {
		d.fail(ctx, event, "webhook registration deactivated")

		return nil
	}

	envelope := &models.WebhookEnvelope{
		EventType:   stringValue(event.Payload, "event_type"),
		CompanyID:   event.CompanyID,
		TriggerData: mapValue(event.Payload, "trigger_data"),
		Result:      mapValue(event.Payload, "result"),
		Timestamp:   time.Now().UTC(),
	}

	result := d.notifier.Deliver(ctx, registration, envelope)

	d.publishDelivery(ctx, event.CompanyID, result)

	if !result.Success {
		return fmt.Errorf("webhook delivery failed: %s", result.Error)
	}

	return nil
}

// retry reschedules the event with exponential backoff, or marks it failed
// once its attempts are exhausted. ClaimDue already counted this attempt.
func (d *Dispatcher) retry(ctx context.Context, event *models.OutboxEvent, cause error) {
	d.logger.WarnContext(ctx, "Outbox event attempt failed",
		"event_id", event.ID, "kind", event.Kind, "attempts", event.Attempts, "error", cause)

	if event.Attempts >= d.maxAttempts {
		d.fail(ctx, event, cause.Error())

		return
	}

	shift := event.Attempts - 1
	if shift < 0 {
		shift = 0
	}

	backoff := baseBackoff << shift
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	err := d.persistence.OutboxRepository().Reschedule(ctx, event.ID, time.Now().UTC().Add(backoff), cause.Error())
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to reschedule outbox event", "event_id", event.ID, "error", err)
	}
}

func (d *Dispatcher) fail(ctx context.Context, event *models.OutboxEvent, reason string) {
	d.logger.ErrorContext(ctx, "Outbox event failed permanently",
		"event_id", event.ID, "kind", event.Kind, "attempts", event.Attempts, "reason", reason)

	err := d.persistence.OutboxRepository().MarkFailed(ctx, event.ID, reason)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to mark outbox event failed", "event_id", event.ID, "error", err)
	}
}

func (d *Dispatcher) publishDelivery(ctx context.Context, companyID string, result models.WebhookDeliveryResult) {
	if d.eventBus == nil {
		return
	}

	delivered := events.WebhookDelivered{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Timestamp: time.Now().UTC(),
			CompanyID: companyID,
		},
		WebhookID:  result.WebhookID,
		Success:    result.Success,
		StatusCode: result.StatusCode,
		Error:      result.Error,
	}
	delivered.Type = delivered.GetType()

	err := d.eventBus.Publish(ctx, companyID, delivered)
	if err != nil {
		d.logger.WarnContext(ctx, "Failed to publish webhook delivery event", "error", err)
	}
}

func stringValue(payload map[string]any, key string) string {
	value, _ := payload[key].(string)

	return value
}

func mapValue(payload map[string]any, key string) map[string]any {
	value, _ := payload[key].(map[string]any)

	return value
}
