package file

import (
	"context"
	"sort"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/google/uuid"
)

const webhooksDir = "webhooks"

// WebhookRepository handles webhook registration file operations.
type WebhookRepository struct {
	p *Persistence
}

func (r *WebhookRepository) Save(_ context.Context, registration *models.WebhookRegistration) error {
	now := time.Now().UTC()

	if registration.CreatedAt.IsZero() {
		registration.CreatedAt = now
	}

	registration.UpdatedAt = now

	if registration.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}

		registration.ID = id.String()
	}

	return r.p.writeDocument(webhooksDir, registration.ID, registration)
}

func (r *WebhookRepository) GetByID(_ context.Context, id string) (*models.WebhookRegistration, error) {
	var registration models.WebhookRegistration

	found, err := r.p.readDocument(webhooksDir, id, &registration)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrWebhookNotFound
	}

	return &registration, nil
}

func (r *WebhookRepository) List(ctx context.Context) ([]*models.WebhookRegistration, error) {
	ids, err := r.p.listIDs(webhooksDir)
	if err != nil {
		return nil, err
	}

	registrations := make([]*models.WebhookRegistration, 0, len(ids))

	for _, id := range ids {
		registration, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		registrations = append(registrations, registration)
	}

	sort.Slice(registrations, func(i, j int) bool {
		return registrations[i].CreatedAt.Before(registrations[j].CreatedAt)
	})

	return registrations, nil
}

func (r *WebhookRepository) FindActiveByEvent(ctx context.Context, trigger models.TriggerType) ([]*models.WebhookRegistration, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.WebhookRegistration, 0)

	for _, registration := range all {
		if registration.Active && registration.SubscribedTo(trigger) {
			matches = append(matches, registration)
		}
	}

	return matches, nil
}

func (r *WebhookRepository) Delete(_ context.Context, id string) error {
	deleted, err := r.p.deleteDocument(webhooksDir, id)
	if err != nil {
		return err
	}

	if !deleted {
		return persistence.ErrWebhookNotFound
	}

	return nil
}
