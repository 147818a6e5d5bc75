package models

import "time"

// EffectKind names the side effects a committed transition can enqueue.
type EffectKind string

const (
	EffectWebhookDelivery      EffectKind = "webhook_delivery"
	EffectSpinGeneration       EffectKind = "spin_generation"
	EffectApprovalNotification EffectKind = "approval_notification"
)

// OutboxStatus is the delivery lifecycle of an outbox event.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusDelivered OutboxStatus = "delivered"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxEvent is one side effect enqueued in the same transaction as the
// primary state transition and delivered asynchronously by the dispatcher.
// The primary transition never waits on, or fails because of, its outbox.
type OutboxEvent struct {
	ID            string         `json:"id"`
	CompanyID     string         `json:"company_id"`
	Kind          EffectKind     `json:"kind"`
	Payload       map[string]any `json:"payload,omitempty"`
	Status        OutboxStatus   `json:"status"`
	Attempts      int            `json:"attempts"`
	NextAttemptAt time.Time      `json:"next_attempt_at"`
	LastError     string         `json:"last_error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	DeliveredAt   *time.Time     `json:"delivered_at,omitempty"`
}
