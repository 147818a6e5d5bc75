package file

import (
	"context"
	"sort"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
)

// ApprovalRepository handles approval request file operations.
type ApprovalRepository struct {
	p *Persistence
}

func (r *ApprovalRepository) GetByID(_ context.Context, id string) (*models.ApprovalRequest, error) {
	var approval models.ApprovalRequest

	found, err := r.p.readDocument(approvalsDir, id, &approval)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrApprovalNotFound
	}

	return &approval, nil
}

func (r *ApprovalRepository) ListByStatus(ctx context.Context, status models.ApprovalStatus) ([]*models.ApprovalRequest, error) {
	ids, err := r.p.listIDs(approvalsDir)
	if err != nil {
		return nil, err
	}

	approvals := make([]*models.ApprovalRequest, 0)

	for _, id := range ids {
		approval, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if approval.Status == status {
			approvals = append(approvals, approval)
		}
	}

	sort.Slice(approvals, func(i, j int) bool {
		return approvals[i].CreatedAt.After(approvals[j].CreatedAt)
	})

	return approvals, nil
}

func (r *ApprovalRepository) Update(ctx context.Context, approval *models.ApprovalRequest) error {
	existing, err := r.GetByID(ctx, approval.ID)
	if err != nil {
		return err
	}

	approval.CreatedAt = existing.CreatedAt
	approval.UpdatedAt = time.Now().UTC()

	return r.p.writeDocument(approvalsDir, approval.ID, approval)
}
