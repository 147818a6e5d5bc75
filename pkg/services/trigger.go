package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/easeworks/propgen/pkg/dedup"
	"github.com/easeworks/propgen/pkg/eventbus"
	"github.com/easeworks/propgen/pkg/events"
	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/otelhelper"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/easeworks/propgen/pkg/schemas"
	"github.com/easeworks/propgen/pkg/workflow"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Trigger processes business events against the proposal workflow state
// machine. The primary transition is transactional and must succeed; every
// side effect goes through the outbox and is delivered later.
type Trigger struct {
	persistence persistence.Persistence
	dedupe      dedup.Store
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewTrigger creates a new trigger service. The dedup store, event bus, and
// tracer are optional.
func NewTrigger(
	p persistence.Persistence,
	dedupe dedup.Store,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Trigger {
	return &Trigger{
		persistence: p,
		dedupe:      dedupe,
		eventBus:    eventBus,
		tracer:      tracer,
		logger:      logger.With("module", "trigger_service"),
	}
}

// ProcessTriggerRequest is one business event to apply.
type ProcessTriggerRequest struct {
	TriggerType string
	CompanyID   string
	Payload     map[string]any
	PerformedBy string
	EventID     string
}

// ProcessTriggerResponse reports what one trigger did.
type ProcessTriggerResponse struct {
	Result         map[string]any `json:"result"`
	WebhooksQueued int            `json:"webhooks_queued"`
	EffectsQueued  int            `json:"effects_queued"`
	Deduplicated   bool           `json:"deduplicated"`
}

// ProcessTrigger applies one trigger: validate, transition, enqueue side
// effects, audit. Only a failure of the primary write surfaces as an error;
// audit and event publication are best-effort.
func (s *Trigger) ProcessTrigger(ctx context.Context, req ProcessTriggerRequest) (*ProcessTriggerResponse, error) {
	if s.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, s.tracer, "trigger.process",
			attribute.String(otelhelper.CompanyIDKey, req.CompanyID),
			attribute.String(otelhelper.TriggerTypeKey, req.TriggerType),
		)
		defer span.End()
	}

	if req.CompanyID == "" {
		return nil, NewValidationError("ProcessTrigger", "COMPANY_ID_REQUIRED", "company ID is required", ErrCompanyIDRequired)
	}

	triggerType, err := models.ParseTriggerType(req.TriggerType)
	if err != nil {
		return nil, err
	}

	err = schemas.ValidatePayload(triggerType, req.Payload)
	if err != nil {
		return nil, err
	}

	if s.suppressDuplicate(ctx, req.EventID) {
		return &ProcessTriggerResponse{Deduplicated: true, Result: map[string]any{}}, nil
	}

	record, err := s.persistence.WorkflowRepository().GetByCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow record: %w", err)
	}

	expectedVersion := int64(0)
	previousStatus := models.WorkflowStatusNotStarted

	if record == nil {
		record = models.NewWorkflowRecord(req.CompanyID)
	} else {
		expectedVersion = record.Version
		previousStatus = record.Status
	}

	event := &models.TriggerEvent{
		Type:        triggerType,
		CompanyID:   req.CompanyID,
		Payload:     req.Payload,
		PerformedBy: req.PerformedBy,
		EventID:     req.EventID,
	}

	mutation, err := workflow.Apply(record, event)
	if err != nil {
		return nil, err
	}

	outbox, webhooksQueued := s.buildOutbox(ctx, triggerType, event, mutation)

	set := &persistence.TransitionSet{
		Record:          mutation.Record,
		ExpectedVersion: expectedVersion,
		Approval:        mutation.Approval,
		Outbox:          outbox,
	}

	err = s.persistence.WorkflowRepository().ApplyTransition(ctx, set)
	if err != nil {
		return nil, err
	}

	s.markProcessed(ctx, req.EventID)
	s.appendAudit(ctx, event, mutation)
	s.publishLifecycle(ctx, event, mutation, previousStatus, webhooksQueued, len(outbox))

	return &ProcessTriggerResponse{
		Result:         mutation.Result,
		WebhooksQueued: webhooksQueued,
		EffectsQueued:  len(outbox),
	}, nil
}

// HealthCheck checks the health of the persistence layer.
func (s *Trigger) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// suppressDuplicate reports whether the event ID was already processed. A
// dedup store failure is logged and treated as not-seen; suppression is an
// optimization, not a correctness guarantee.
func (s *Trigger) suppressDuplicate(ctx context.Context, eventID string) bool {
	if s.dedupe == nil || eventID == "" {
		return false
	}

	seen, err := s.dedupe.Seen(ctx, eventID)
	if err != nil {
		s.logger.WarnContext(ctx, "Duplicate suppression unavailable", "event_id", eventID, "error", err)

		return false
	}

	return seen
}

// markProcessed records the event ID once its transition committed. Failed
// triggers leave the ID unrecorded so an identical retry is not swallowed.
func (s *Trigger) markProcessed(ctx context.Context, eventID string) {
	if s.dedupe == nil || eventID == "" {
		return
	}

	err := s.dedupe.Mark(ctx, eventID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to record processed event ID", "event_id", eventID, "error", err)
	}
}

// buildOutbox combines the transition's own effects with one webhook delivery
// per matching active registration. A registration lookup failure degrades to
// zero webhook deliveries rather than failing the transition.
func (s *Trigger) buildOutbox(ctx context.Context, triggerType models.TriggerType, event *models.TriggerEvent, mutation *workflow.Mutation) ([]*models.OutboxEvent, int) {
	outbox := make([]*models.OutboxEvent, 0, len(mutation.Effects))

	for _, effect := range mutation.Effects {
		outbox = append(outbox, &models.OutboxEvent{
			CompanyID: event.CompanyID,
			Kind:      effect.Kind,
			Payload:   effect.Payload,
		})
	}

	registrations, err := s.persistence.WebhookRepository().FindActiveByEvent(ctx, triggerType)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to match webhook registrations",
			"trigger_type", triggerType, "error", err)

		return outbox, 0
	}

	for _, registration := range registrations {
		outbox = append(outbox, &models.OutboxEvent{
			CompanyID: event.CompanyID,
			Kind:      models.EffectWebhookDelivery,
			Payload: map[string]any{
				"webhook_id":   registration.ID,
				"event_type":   string(triggerType),
				"company_id":   event.CompanyID,
				"trigger_data": event.Payload,
				"result":       mutation.Result,
			},
		})
	}

	return outbox, len(registrations)
}

// appendAudit writes the audit entry for a committed transition. Audit
// failures are logged and swallowed; auditing must never break the primary
// transition.
func (s *Trigger) appendAudit(ctx context.Context, event *models.TriggerEvent, mutation *workflow.Mutation) {
	entry := &models.AuditLogEntry{
		CompanyID:      event.CompanyID,
		TriggerType:    string(event.Type),
		TriggerPayload: event.Payload,
		ActionType:     mutation.ActionType,
		ActionResult:   mutation.Result,
		PerformedBy:    event.PerformedBy,
	}

	err := s.persistence.AuditRepository().Append(ctx, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to append audit entry",
			"company_id", event.CompanyID, "trigger_type", event.Type, "error", err)
	}
}

// publishLifecycle emits bus events for a committed transition, best-effort.
func (s *Trigger) publishLifecycle(ctx context.Context, event *models.TriggerEvent, mutation *workflow.Mutation, previousStatus models.WorkflowStatus, webhooksQueued, effectsQueued int) {
	if s.eventBus == nil {
		return
	}

	processed := events.TriggerProcessed{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.TriggerProcessedEvent,
			Timestamp: time.Now().UTC(),
			CompanyID: event.CompanyID,
		},
		TriggerType:    string(event.Type),
		PerformedBy:    event.PerformedBy,
		Result:         mutation.Result,
		WebhooksQueued: webhooksQueued,
		EffectsQueued:  effectsQueued,
	}

	err := s.eventBus.Publish(ctx, event.CompanyID, processed)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish trigger processed event", "error", err)
	}

	if mutation.Record != nil && mutation.Record.Status != previousStatus {
		transitioned := events.WorkflowTransitioned{
			BaseEvent: events.BaseEvent{
				ID:        uuid.New().String(),
				Type:      events.WorkflowTransitionedEvent,
				Timestamp: time.Now().UTC(),
				CompanyID: event.CompanyID,
			},
			FromStatus: previousStatus,
			ToStatus:   mutation.Record.Status,
			Version:    mutation.Record.Version,
		}

		err := s.eventBus.Publish(ctx, event.CompanyID, transitioned)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to publish workflow transitioned event", "error", err)
		}
	}

	if mutation.Approval != nil {
		requested := events.ApprovalRequested{
			BaseEvent: events.BaseEvent{
				ID:        uuid.New().String(),
				Type:      events.ApprovalRequestedEvent,
				Timestamp: time.Now().UTC(),
				CompanyID: event.CompanyID,
			},
			ApprovalID:  mutation.Approval.ID,
			SubmittedBy: mutation.Approval.SubmittedBy,
			RiskScore:   mutation.Approval.RiskScore,
		}

		err := s.eventBus.Publish(ctx, event.CompanyID, requested)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to publish approval requested event", "error", err)
		}
	}
}
