package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/google/uuid"
)

// WebhookRepository handles webhook registration database operations.
type WebhookRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWebhookRepository creates a new webhook repository.
func NewWebhookRepository(db *sql.DB, logger *slog.Logger) *WebhookRepository {
	return &WebhookRepository{db: db, logger: logger}
}

// Save inserts or updates a webhook registration.
func (r *WebhookRepository) Save(ctx context.Context, registration *models.WebhookRegistration) error {
	now := time.Now().UTC()

	if registration.CreatedAt.IsZero() {
		registration.CreatedAt = now
	}

	registration.UpdatedAt = now

	if registration.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate webhook ID: %w", err)
		}

		registration.ID = id.String()
	}

	eventsJSON, err := json.Marshal(registration.TriggerEvents)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger events: %w", err)
	}

	query := `
		INSERT INTO webhook_registrations (id, name, url, active, trigger_events, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			active = EXCLUDED.active,
			trigger_events = EXCLUDED.trigger_events,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		registration.ID,
		registration.Name,
		registration.URL,
		registration.Active,
		eventsJSON,
		registration.CreatedAt,
		registration.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save webhook registration: %w", err)
	}

	return nil
}

// GetByID returns one webhook registration.
func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*models.WebhookRegistration, error) {
	query := `
		SELECT id, name, url, active, trigger_events, created_at, updated_at
		FROM webhook_registrations
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	registration, err := scanWebhookRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWebhookNotFound
		}

		return nil, fmt.Errorf("failed to scan webhook registration: %w", err)
	}

	return registration, nil
}

// List returns all webhook registrations.
func (r *WebhookRepository) List(ctx context.Context) ([]*models.WebhookRegistration, error) {
	query := `
		SELECT id, name, url, active, trigger_events, created_at, updated_at
		FROM webhook_registrations
		ORDER BY created_at DESC
	`

	return r.queryRegistrations(ctx, query)
}

// FindActiveByEvent returns active registrations subscribed to the trigger.
func (r *WebhookRepository) FindActiveByEvent(ctx context.Context, trigger models.TriggerType) ([]*models.WebhookRegistration, error) {
	query := `
		SELECT id, name, url, active, trigger_events, created_at, updated_at
		FROM webhook_registrations
		WHERE active = true AND trigger_events ? $1
		ORDER BY created_at
	`

	return r.queryRegistrations(ctx, query, string(trigger))
}

// Delete removes a webhook registration.
func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM webhook_registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook registration: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.ErrWebhookNotFound
	}

	return nil
}

func (r *WebhookRepository) queryRegistrations(ctx context.Context, query string, args ...any) ([]*models.WebhookRegistration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook registrations: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	registrations := make([]*models.WebhookRegistration, 0)

	for rows.Next() {
		registration, err := scanWebhookRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook registration: %w", err)
		}

		registrations = append(registrations, registration)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating webhook registrations: %w", err)
	}

	return registrations, nil
}

func scanWebhookRegistration(scanner interface {
	Scan(dest ...any) error
}) (*models.WebhookRegistration, error) {
	var (
		registration models.WebhookRegistration
		eventsJSON   []byte
	)

	err := scanner.Scan(
		&registration.ID,
		&registration.Name,
		&registration.URL,
		&registration.Active,
		&eventsJSON,
		&registration.CreatedAt,
		&registration.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if eventsJSON != nil {
		err := json.Unmarshal(eventsJSON, &registration.TriggerEvents)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger events: %w", err)
		}
	}

	return &registration, nil
}
