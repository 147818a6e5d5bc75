package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
)

// Audit exposes read access to the append-only audit trail.
type Audit struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewAudit(p persistence.Persistence, logger *slog.Logger) *Audit {
	return &Audit{
		persistence: p,
		logger:      logger.With("module", "audit_service"),
	}
}

// ListByCompany returns the company's audit entries, newest first.
func (s *Audit) ListByCompany(ctx context.Context, companyID string, limit int) ([]*models.AuditLogEntry, error) {
	if companyID == "" {
		return nil, NewValidationError("ListByCompany", "COMPANY_ID_REQUIRED", "company ID is required", ErrCompanyIDRequired)
	}

	entries, err := s.persistence.AuditRepository().ListByCompany(ctx, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return entries, nil
}
