package file

import (
	"context"
	"sort"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/google/uuid"
)

const (
	workflowsDir = "workflows"
	outboxDir    = "outbox"
	approvalsDir = "approvals"
)

// WorkflowRepository handles workflow record file operations.
type WorkflowRepository struct {
	p *Persistence
}

// GetByCompany returns the workflow record for a company, or nil when the
// company has no record yet.
func (r *WorkflowRepository) GetByCompany(_ context.Context, companyID string) (*models.WorkflowRecord, error) {
	var record models.WorkflowRecord

	found, err := r.p.readDocument(workflowsDir, companyID, &record)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	return &record, nil
}

// List returns all workflow records ordered by last mutation.
func (r *WorkflowRepository) List(ctx context.Context) ([]*models.WorkflowRecord, error) {
	ids, err := r.p.listIDs(workflowsDir)
	if err != nil {
		return nil, err
	}

	records := make([]*models.WorkflowRecord, 0, len(ids))

	for _, id := range ids {
		record, err := r.GetByCompany(ctx, id)
		if err != nil {
			return nil, err
		}

		if record != nil {
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})

	return records, nil
}

// ApplyTransition commits the primary writes of one trigger. Writes are
// serialized by the persistence lock; the version check mirrors the
// compare-and-swap the PostgreSQL backend performs in SQL.
func (r *WorkflowRepository) ApplyTransition(ctx context.Context, set *persistence.TransitionSet) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()

	if set.Record != nil {
		current, err := r.GetByCompany(ctx, set.Record.CompanyID)
		if err != nil {
			return err
		}

		currentVersion := int64(0)
		if current != nil {
			currentVersion = current.Version
		}

		if currentVersion != set.ExpectedVersion {
			return persistence.NewTransitionError("ApplyTransition", set.Record.CompanyID, persistence.ErrVersionConflict)
		}

		if set.Record.CreatedAt.IsZero() {
			set.Record.CreatedAt = now
		}

		set.Record.UpdatedAt = now
		set.Record.Version = set.ExpectedVersion + 1

		err = r.p.writeDocument(workflowsDir, set.Record.CompanyID, set.Record)
		if err != nil {
			return err
		}
	}

	if set.Approval != nil {
		if set.Approval.CreatedAt.IsZero() {
			set.Approval.CreatedAt = now
		}

		set.Approval.UpdatedAt = now

		err := r.p.writeDocument(approvalsDir, set.Approval.ID, set.Approval)
		if err != nil {
			return err
		}
	}

	for _, event := range set.Outbox {
		if event.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return err
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

		err := r.p.writeDocument(outboxDir, event.ID, event)
		if err != nil {
			return err
		}
	}

	return nil
}
