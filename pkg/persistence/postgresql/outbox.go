package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/google/uuid"
)

// OutboxRepository handles the side-effect outbox table. Rows are enqueued
// inside ApplyTransition; the dispatcher drains them through this repository.
type OutboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository creates a new outbox repository.
func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// ClaimDue atomically selects due pending events and bumps their attempt
// counter. SKIP LOCKED keeps concurrent dispatchers from claiming the same
// rows.
func (r *OutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.OutboxEvent, error) {
	query := `
		UPDATE outbox_events
		SET attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = 'pending' AND next_attempt_at <= $1
			ORDER BY next_attempt_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, company_id, kind, payload, status, attempts, next_attempt_at, last_error, created_at, delivered_at
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	events := make([]*models.OutboxEvent, 0)

	for rows.Next() {
		var (
			event       models.OutboxEvent
			payloadJSON []byte
			lastError   sql.NullString
			deliveredAt sql.NullTime
		)

		err := rows.Scan(
			&event.ID,
			&event.CompanyID,
			&event.Kind,
			&payloadJSON,
			&event.Status,
			&event.Attempts,
			&event.NextAttemptAt,
			&lastError,
			&event.CreatedAt,
			&deliveredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}

		event.LastError = lastError.String

		if deliveredAt.Valid {
			event.DeliveredAt = &deliveredAt.Time
		}

		if payloadJSON != nil {
			err := json.Unmarshal(payloadJSON, &event.Payload)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal outbox payload: %w", err)
			}
		}

		events = append(events, &event)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}

	return events, nil
}

// MarkDelivered finalizes a successfully delivered event.
func (r *OutboxRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return r.finalize(ctx,
		`UPDATE outbox_events SET status = 'delivered', delivered_at = $2, last_error = NULL WHERE id = $1`,
		id, at)
}

// Reschedule pushes a failed delivery to a later attempt.
func (r *OutboxRepository) Reschedule(ctx context.Context, id string, nextAttempt time.Time, lastError string) error {
	return r.finalize(ctx,
		`UPDATE outbox_events SET next_attempt_at = $2, last_error = $3 WHERE id = $1`,
		id, nextAttempt, lastError)
}

// MarkFailed gives up on an event after the attempt cap.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, lastError string) error {
	return r.finalize(ctx,
		`UPDATE outbox_events SET status = 'failed', last_error = $2 WHERE id = $1`,
		id, lastError)
}

func (r *OutboxRepository) finalize(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update outbox event: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.ErrOutboxEventNotFound
	}

	return nil
}

// insertOutboxEvent is called inside the ApplyTransition transaction.
func insertOutboxEvent(ctx context.Context, tx *sql.Tx, event *models.OutboxEvent, now time.Time) error {
	if event.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate outbox event ID: %w", err)
		}

		event.ID = id.String()
	}

	if event.Status == "" {
		event.Status = models.OutboxStatusPending
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}

	if event.NextAttemptAt.IsZero() {
		event.NextAttemptAt = now
	}

	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	query := `
		INSERT INTO outbox_events (id, company_id, kind, payload, status, attempts, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = tx.ExecContext(ctx, query,
		event.ID,
		event.CompanyID,
		event.Kind,
		payloadJSON,
		event.Status,
		event.Attempts,
		event.NextAttemptAt,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}
