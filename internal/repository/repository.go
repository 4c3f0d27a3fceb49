package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrFlowRealized is returned when changing a flow that is already actual
	ErrFlowRealized = errors.New("flow is already realized")
)

//go:embed schema.sql
var schema string

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the schema if it does not exist yet
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// TreasuryBalance returns the combined balance of all treasury accounts
func (r *Repository) TreasuryBalance(ctx context.Context) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(balance), 0) FROM gmah.treasury_accounts`).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read treasury balance: %w", err)
	}
	return balance, nil
}

const flowColumns = `id, type, category, amount, description, expected_date, actual_date, is_actual,
		probability, confidence, loan_id, payment_id, contribution_id, source, tags, metadata`

// CreateFlow stores a new treasury flow
func (r *Repository) CreateFlow(ctx context.Context, f *models.TreasuryFlow) error {
	query := `
		INSERT INTO gmah.treasury_flows (` + flowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.db.ExecContext(ctx, query, flowArgs(f)...)
	if err != nil {
		return fmt.Errorf("failed to create flow: %w", err)
	}
	return nil
}

// GetFlow retrieves a treasury flow by id
func (r *Repository) GetFlow(ctx context.Context, id string) (*models.TreasuryFlow, error) {
	query := `SELECT ` + flowColumns + ` FROM gmah.treasury_flows WHERE id = $1`
	f, err := scanFlow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find flow: %w", err)
	}
	return f, nil
}

// RealizeFlow marks a flow as actual. A realized flow never changes again.
func (r *Repository) RealizeFlow(ctx context.Context, id string, actualDate time.Time) (*models.TreasuryFlow, error) {
	query := `
		UPDATE gmah.treasury_flows SET is_actual = TRUE, actual_date = $2
		WHERE id = $1 AND NOT is_actual
		RETURNING ` + flowColumns
	f, err := scanFlow(r.db.QueryRowContext(ctx, query, id, actualDate))
	if err == sql.ErrNoRows {
		if _, getErr := r.GetFlow(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrFlowRealized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to realize flow: %w", err)
	}
	return f, nil
}

// ListTreasuryFlows returns stored flows that can land in [from, to]: those
// effective inside the range and unrealized ones that are already past due.
func (r *Repository) ListTreasuryFlows(ctx context.Context, from, to time.Time) ([]models.TreasuryFlow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM gmah.treasury_flows
		WHERE COALESCE(actual_date, expected_date) < $2
		  AND (COALESCE(actual_date, expected_date) >= $1 OR NOT is_actual)
		ORDER BY COALESCE(actual_date, expected_date), id`
	rows, err := r.db.QueryContext(ctx, query, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	var flows []models.TreasuryFlow
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}
		flows = append(flows, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	return flows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFlow(s scanner) (*models.TreasuryFlow, error) {
	f := &models.TreasuryFlow{}
	var (
		actualDate                   sql.NullTime
		loanID, paymentID, contribID sql.NullInt64
		metadataRaw                  []byte
	)
	err := s.Scan(&f.ID, &f.Type, &f.Category, &f.Amount, &f.Description, &f.ExpectedDate, &actualDate, &f.IsActual,
		&f.Probability, &f.Confidence, &loanID, &paymentID, &contribID, &f.Source, pq.Array(&f.Tags), &metadataRaw)
	if err != nil {
		return nil, err
	}
	if actualDate.Valid {
		f.ActualDate = &actualDate.Time
	}
	f.LoanID = nullInt(loanID)
	f.PaymentID = nullInt(paymentID)
	f.ContributionID = nullInt(contribID)
	if f.Metadata, err = scanMetadata(metadataRaw); err != nil {
		return nil, err
	}
	return f, nil
}

func flowArgs(f *models.TreasuryFlow) []any {
	return []any{
		f.ID, f.Type, f.Category, f.Amount, f.Description, f.ExpectedDate, f.ActualDate, f.IsActual,
		f.Probability, f.Confidence, f.LoanID, f.PaymentID, f.ContributionID, f.Source, pq.Array(f.Tags), f.Metadata,
	}
}

func scanMetadata(raw []byte) (*models.Metadata, error) {
	if raw == nil {
		return nil, nil
	}
	m := &models.Metadata{}
	if err := m.Scan(raw); err != nil {
		return nil, err
	}
	return m, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
