package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
)

// ApprovalRepository handles approval request database operations. Creation
// happens inside ApplyTransition; this repository covers the read and
// decision paths.
type ApprovalRepository struct {
	db *sql.DB
}

// NewApprovalRepository creates a new approval repository.
func NewApprovalRepository(db *sql.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

const approvalColumns = `
	id
  , company_id
  , submitted_by
  , status
  , proposal_data
  , risk_score
  , investment_analysis
  , decided_by
  , decided_at
  , created_at
  , updated_at
`

// GetByID returns one approval request.
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	approval, err := scanApproval(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrApprovalNotFound
		}

		return nil, fmt.Errorf("failed to scan approval request: %w", err)
	}

	return approval, nil
}

// ListByStatus returns approval requests in the given state, newest first.
func (r *ApprovalRepository) ListByStatus(ctx context.Context, status models.ApprovalStatus) ([]*models.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE status = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval requests: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	approvals := make([]*models.ApprovalRequest, 0)

	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval request: %w", err)
		}

		approvals = append(approvals, approval)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating approval requests: %w", err)
	}

	return approvals, nil
}

// Update persists a reviewer decision on an approval request.
func (r *ApprovalRepository) Update(ctx context.Context, approval *models.ApprovalRequest) error {
	approval.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE approval_requests
		SET status = $2, decided_by = $3, decided_at = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		approval.ID,
		approval.Status,
		nullString(approval.DecidedBy),
		approval.DecidedAt,
		approval.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update approval request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.ErrApprovalNotFound
	}

	return nil
}

// insertApproval is called inside the ApplyTransition transaction.
func insertApproval(ctx context.Context, tx *sql.Tx, approval *models.ApprovalRequest, now time.Time) error {
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = now
	}

	approval.UpdatedAt = now

	proposalJSON, err := json.Marshal(approval.ProposalData)
	if err != nil {
		return fmt.Errorf("failed to marshal proposal data: %w", err)
	}

	analysisJSON, err := json.Marshal(approval.InvestmentAnalysis)
	if err != nil {
		return fmt.Errorf("failed to marshal investment analysis: %w", err)
	}

	query := `
		INSERT INTO approval_requests (id, company_id, submitted_by, status,
	proposal_data, risk_score, investment_analysis, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = tx.ExecContext(ctx, query,
		approval.ID,
		approval.CompanyID,
		nullString(approval.SubmittedBy),
		approval.Status,
		proposalJSON,
		approval.RiskScore,
		analysisJSON,
		approval.CreatedAt,
		approval.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert approval request: %w", err)
	}

	return nil
}

func scanApproval(scanner interface {
	Scan(dest ...any) error
}) (*models.ApprovalRequest, error) {
	var (
		approval                   models.ApprovalRequest
		submittedBy, decidedBy     sql.NullString
		riskScore                  sql.NullFloat64
		decidedAt                  sql.NullTime
		proposalJSON, analysisJSON []byte
	)

	err := scanner.Scan(
		&approval.ID,
		&approval.CompanyID,
		&submittedBy,
		&approval.Status,
		&proposalJSON,
		&riskScore,
		&analysisJSON,
		&decidedBy,
		&decidedAt,
		&approval.CreatedAt,
		&approval.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	approval.SubmittedBy = submittedBy.String
	approval.DecidedBy = decidedBy.String

	if riskScore.Valid {
		approval.RiskScore = &riskScore.Float64
	}

	if decidedAt.Valid {
		approval.DecidedAt = &decidedAt.Time
	}

	if proposalJSON != nil {
		err := json.Unmarshal(proposalJSON, &approval.ProposalData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal proposal data: %w", err)
		}
	}

	if analysisJSON != nil {
		err := json.Unmarshal(analysisJSON, &approval.InvestmentAnalysis)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal investment analysis: %w", err)
		}
	}

	return &approval, nil
}
