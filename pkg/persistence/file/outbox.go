package file

import (
	"context"
	"sort"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
)

// OutboxRepository handles outbox event file operations.
type OutboxRepository struct {
	p *Persistence
}

func (r *OutboxRepository) ClaimDue(_ context.Context, now time.Time, limit int) ([]*models.OutboxEvent, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	ids, err := r.p.listIDs(outboxDir)
	if err != nil {
		return nil, err
	}

	due := make([]*models.OutboxEvent, 0)

	for _, id := range ids {
		var event models.OutboxEvent

		found, err := r.p.readDocument(outboxDir, id, &event)
		if err != nil {
			return nil, err
		}

		if found && event.Status == models.OutboxStatusPending && !event.NextAttemptAt.After(now) {
			due = append(due, &event)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	for _, event := range due {
		event.Attempts++

		err := r.p.writeDocument(outboxDir, event.ID, event)
		if err != nil {
			return nil, err
		}
	}

	return due, nil
}

func (r *OutboxRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, func(event *models.OutboxEvent) {
		event.Status = models.OutboxStatusDelivered
		event.DeliveredAt = &at
		event.LastError = ""
	})
}

func (r *OutboxRepository) Reschedule(ctx context.Context, id string, nextAttempt time.Time, lastError string) error {
	return r.update(ctx, id, func(event *models.OutboxEvent) {
		event.NextAttemptAt = nextAttempt
		event.LastError = lastError
	})
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, lastError string) error {
	return r.update(ctx, id, func(event *models.OutboxEvent) {
		event.Status = models.OutboxStatusFailed
		event.LastError = lastError
	})
}

func (r *OutboxRepository) update(_ context.Context, id string, apply func(*models.OutboxEvent)) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var event models.OutboxEvent

	found, err := r.p.readDocument(outboxDir, id, &event)
	if err != nil {
		return err
	}

	if !found {
		return persistence.ErrOutboxEventNotFound
	}

	apply(&event)

	return r.p.writeDocument(outboxDir, id, &event)
}
