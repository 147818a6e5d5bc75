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
)

// WorkflowRepository handles workflow record database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	company_id
  , status
  , spin_content_status
  , investment_analysis_status
  , proposal_status
  , spin_content
  , investment_analysis_data
  , risk_score
  , assessment_date
  , version
  , created_at
  , updated_at
`

// GetByCompany returns the workflow record for a company, or nil when the
// company has no record yet.
func (r *WorkflowRepository) GetByCompany(ctx context.Context, companyID string) (*models.WorkflowRecord, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_records WHERE company_id = $1`

	row := r.db.QueryRowContext(ctx, query, companyID)

	record, err := scanWorkflowRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan workflow record: %w", err)
	}

	return record, nil
}

// List returns all workflow records ordered by last mutation.
func (r *WorkflowRepository) List(ctx context.Context) ([]*models.WorkflowRecord, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_records ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow records: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.WorkflowRecord, 0)

	for rows.Next() {
		record, err := scanWorkflowRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow record: %w", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow records: %w", err)
	}

	return records, nil
}

// ApplyTransition commits one trigger's primary writes in a single
// transaction: the compare-and-swap workflow upsert, the approval request
// (when the trigger created one), and the outbox rows for its side effects.
// A lost compare-and-swap surfaces as ErrVersionConflict and nothing commits.
func (r *WorkflowRepository) ApplyTransition(ctx context.Context, set *persistence.TransitionSet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	if set.Record != nil {
		err = r.saveRecord(ctx, tx, set.Record, set.ExpectedVersion, now)
		if err != nil {
			return err
		}
	}

	if set.Approval != nil {
		err = insertApproval(ctx, tx, set.Approval, now)
		if err != nil {
			return err
		}
	}

	for _, event := range set.Outbox {
		err = insertOutboxEvent(ctx, tx, event, now)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) saveRecord(ctx context.Context, tx *sql.Tx, record *models.WorkflowRecord, expectedVersion int64, now time.Time) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	record.UpdatedAt = now

	spinJSON, err := json.Marshal(record.SpinContent)
	if err != nil {
		return fmt.Errorf("failed to marshal spin content: %w", err)
	}

	analysisJSON, err := json.Marshal(record.InvestmentAnalysisData)
	if err != nil {
		return fmt.Errorf("failed to marshal investment analysis data: %w", err)
	}

	// Insert-or-update keyed by company_id. The WHERE clause on the update arm
	// is the compare-and-swap: a concurrent transition that already bumped the
	// version makes this statement affect zero rows.
	query := `
		INSERT INTO workflow_records (company_id, status, spin_content_status,
	investment_analysis_status, proposal_status, spin_content, investment_analysis_data,
	risk_score, assessment_date, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (company_id) DO UPDATE SET
			status = EXCLUDED.status,
			spin_content_status = EXCLUDED.spin_content_status,
			investment_analysis_status = EXCLUDED.investment_analysis_status,
			proposal_status = EXCLUDED.proposal_status,
			spin_content = EXCLUDED.spin_content,
			investment_analysis_data = EXCLUDED.investment_analysis_data,
			risk_score = EXCLUDED.risk_score,
			assessment_date = EXCLUDED.assessment_date,
			version = workflow_records.version + 1,
			updated_at = EXCLUDED.updated_at
		WHERE workflow_records.version = $13
	`

	result, err := tx.ExecContext(ctx, query,
		record.CompanyID,
		record.Status,
		nullString(record.SpinContentStatus),
		nullString(record.InvestmentAnalysisStatus),
		nullString(record.ProposalStatus),
		spinJSON,
		analysisJSON,
		record.RiskScore,
		record.AssessmentDate,
		expectedVersion+1,
		record.CreatedAt,
		record.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewTransitionError("ApplyTransition", record.CompanyID, persistence.ErrVersionConflict)
	}

	record.Version = expectedVersion + 1

	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func scanWorkflowRecord(scanner interface {
	Scan(dest ...any) error
}) (*models.WorkflowRecord, error) {
	var (
		record                                     models.WorkflowRecord
		spinStatus, analysisStatus, proposalStatus sql.NullString
		riskScore                                  sql.NullFloat64
		assessmentDate                             sql.NullTime
		spinJSON, analysisJSON                     []byte
	)

	err := scanner.Scan(
		&record.CompanyID,
		&record.Status,
		&spinStatus,
		&analysisStatus,
		&proposalStatus,
		&spinJSON,
		&analysisJSON,
		&riskScore,
		&assessmentDate,
		&record.Version,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.SpinContentStatus = spinStatus.String
	record.InvestmentAnalysisStatus = analysisStatus.String
	record.ProposalStatus = proposalStatus.String

	if riskScore.Valid {
		record.RiskScore = &riskScore.Float64
	}

	if assessmentDate.Valid {
		record.AssessmentDate = &assessmentDate.Time
	}

	if spinJSON != nil {
		err := json.Unmarshal(spinJSON, &record.SpinContent)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal spin content: %w", err)
		}
	}

	if analysisJSON != nil {
		err := json.Unmarshal(analysisJSON, &record.InvestmentAnalysisData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal investment analysis data: %w", err)
		}
	}

	return &record, nil
}
