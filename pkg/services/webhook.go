package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Webhook manages webhook registrations.
type Webhook struct {
	persistence persistence.Persistence
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewWebhook(p persistence.Persistence, logger *slog.Logger) *Webhook {
	return &Webhook{
		persistence: p,
		validator:   validator.New(),
		logger:      logger.With("module", "webhook_service"),
	}
}

// Register validates and stores a new registration. Unknown trigger types in
// the subscription list are rejected up front so misconfigured endpoints
// never sit silently unmatched.
func (s *Webhook) Register(ctx context.Context, registration *models.WebhookRegistration) (*models.WebhookRegistration, error) {
	err := s.validator.Struct(registration)
	if err != nil {
		return nil, NewValidationError("Register", "INVALID_WEBHOOK", err.Error(), ErrInvalidRequest)
	}

	for _, event := range registration.TriggerEvents {
		_, err := models.ParseTriggerType(event)
		if err != nil {
			return nil, err
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate webhook ID: %w", err)
	}

	now := time.Now().UTC()
	registration.ID = id.String()
	registration.CreatedAt = now
	registration.UpdatedAt = now

	err = s.persistence.WebhookRepository().Save(ctx, registration)
	if err != nil {
		return nil, fmt.Errorf("failed to save webhook registration: %w", err)
	}

	s.logger.InfoContext(ctx, "Webhook registered",
		"webhook_id", registration.ID, "url", registration.URL, "events", registration.TriggerEvents)

	return registration, nil
}

// Get returns one registration by ID.
func (s *Webhook) Get(ctx context.Context, id string) (*models.WebhookRegistration, error) {
	return s.persistence.WebhookRepository().GetByID(ctx, id)
}

// List returns every registration, active or not.
func (s *Webhook) List(ctx context.Context) ([]*models.WebhookRegistration, error) {
	return s.persistence.WebhookRepository().List(ctx)
}

// UpdateWebhookRequest carries the mutable fields of a registration. Nil
// fields are left unchanged.
type UpdateWebhookRequest struct {
	Name          *string
	URL           *string
	Active        *bool
	TriggerEvents []string
}

// Update applies a partial update to an existing registration.
func (s *Webhook) Update(ctx context.Context, id string, req UpdateWebhookRequest) (*models.WebhookRegistration, error) {
	registration, err := s.persistence.WebhookRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		registration.Name = *req.Name
	}

	if req.URL != nil {
		registration.URL = *req.URL
	}

	if req.Active != nil {
		registration.Active = *req.Active
	}

	if req.TriggerEvents != nil {
		for _, event := range req.TriggerEvents {
			_, err := models.ParseTriggerType(event)
			if err != nil {
				return nil, err
			}
		}

		registration.TriggerEvents = req.TriggerEvents
	}

	err = s.validator.Struct(registration)
	if err != nil {
		return nil, NewValidationError("Update", "INVALID_WEBHOOK", err.Error(), ErrInvalidRequest)
	}

	registration.UpdatedAt = time.Now().UTC()

	err = s.persistence.WebhookRepository().Save(ctx, registration)
	if err != nil {
		return nil, fmt.Errorf("failed to save webhook registration: %w", err)
	}

	return registration, nil
}

// Delete removes a registration.
func (s *Webhook) Delete(ctx context.Context, id string) error {
	err := s.persistence.WebhookRepository().Delete(ctx, id)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Webhook deleted", "webhook_id", id)

	return nil
}
