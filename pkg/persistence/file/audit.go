package file

import (
	"context"
	"sort"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/google/uuid"
)

const auditDir = "audit"

// AuditRepository handles append-only audit log file operations.
type AuditRepository struct {
	p *Persistence
}

func (r *AuditRepository) Append(_ context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}

		entry.ID = id.String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	return r.p.writeDocument(auditDir, entry.ID, entry)
}

func (r *AuditRepository) ListByCompany(_ context.Context, companyID string, limit int) ([]*models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	ids, err := r.p.listIDs(auditDir)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.AuditLogEntry, 0)

	for _, id := range ids {
		var entry models.AuditLogEntry

		found, err := r.p.readDocument(auditDir, id, &entry)
		if err != nil {
			return nil, err
		}

		if found && entry.CompanyID == companyID {
			entries = append(entries, &entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}
