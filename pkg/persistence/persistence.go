// Package persistence provides the data storage abstraction for workflow
// records, webhook registrations, approvals, audit entries, and the outbox.
package persistence

import (
	"context"
	"time"

	"github.com/easeworks/propgen/pkg/models"
)

// TransitionSet is everything one trigger commits as the primary transition:
// the workflow upsert guarded by ExpectedVersion, an optional approval
// request, and the outbox rows for its side effects. Implementations apply
// the whole set atomically where the backend allows it.
type TransitionSet struct {
	Record          *models.WorkflowRecord
	ExpectedVersion int64
	Approval        *models.ApprovalRequest
	Outbox          []*models.OutboxEvent
}

type WorkflowRepository interface {
	GetByCompany(ctx context.Context, companyID string) (*models.WorkflowRecord, error)
	List(ctx context.Context) ([]*models.WorkflowRecord, error)
	ApplyTransition(ctx context.Context, set *TransitionSet) error
}

type WebhookRepository interface {
	Save(ctx context.Context, registration *models.WebhookRegistration) error
	GetByID(ctx context.Context, id string) (*models.WebhookRegistration, error)
	List(ctx context.Context) ([]*models.WebhookRegistration, error)
	FindActiveByEvent(ctx context.Context, trigger models.TriggerType) ([]*models.WebhookRegistration, error)
	Delete(ctx context.Context, id string) error
}

type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	ListByCompany(ctx context.Context, companyID string, limit int) ([]*models.AuditLogEntry, error)
}

type ApprovalRepository interface {
	GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error)
	ListByStatus(ctx context.Context, status models.ApprovalStatus) ([]*models.ApprovalRequest, error)
	Update(ctx context.Context, approval *models.ApprovalRequest) error
}

type OutboxRepository interface {
	// ClaimDue returns at most limit pending events due at or before now and
	// bumps their attempt counter so concurrent dispatchers skip them.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.OutboxEvent, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	Reschedule(ctx context.Context, id string, nextAttempt time.Time, lastError string) error
	MarkFailed(ctx context.Context, id string, lastError string) error
}

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	WebhookRepository() WebhookRepository
	AuditRepository() AuditRepository
	ApprovalRepository() ApprovalRepository
	OutboxRepository() OutboxRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
