package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/google/uuid"
)

// AuditRepository handles the append-only audit log table.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry. Entries are never updated or deleted.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate audit entry ID: %w", err)
		}

		entry.ID = id.String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	payloadJSON, err := json.Marshal(entry.TriggerPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger payload: %w", err)
	}

	resultJSON, err := json.Marshal(entry.ActionResult)
	if err != nil {
		return fmt.Errorf("failed to marshal action result: %w", err)
	}

	query := `
		INSERT INTO audit_log_entries (id, company_id, trigger_type, trigger_payload,
	action_type, action_result, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.CompanyID,
		entry.TriggerType,
		payloadJSON,
		entry.ActionType,
		resultJSON,
		nullString(entry.PerformedBy),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// ListByCompany returns the newest audit entries for a tenant.
func (r *AuditRepository) ListByCompany(ctx context.Context, companyID string, limit int) ([]*models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, company_id, trigger_type, trigger_payload, action_type, action_result, performed_by, created_at
		FROM audit_log_entries
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*models.AuditLogEntry, 0)

	for rows.Next() {
		var (
			entry                   models.AuditLogEntry
			payloadJSON, resultJSON []byte
			performedBy             sql.NullString
		)

		err := rows.Scan(
			&entry.ID,
			&entry.CompanyID,
			&entry.TriggerType,
			&payloadJSON,
			&entry.ActionType,
			&resultJSON,
			&performedBy,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		entry.PerformedBy = performedBy.String

		if payloadJSON != nil {
			err := json.Unmarshal(payloadJSON, &entry.TriggerPayload)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal trigger payload: %w", err)
			}
		}

		if resultJSON != nil {
			err := json.Unmarshal(resultJSON, &entry.ActionResult)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal action result: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
