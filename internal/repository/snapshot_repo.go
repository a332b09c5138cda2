package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aditpras/loan-workflow/internal/gateway"
)

// Snapshot is the last-seen copy of a loan. It exists for the SLA monitor and
// the report exporter; it is never authoritative.
type Snapshot struct {
	LoanID         string
	Status         string
	Stage          string
	Amount         float64
	StageEnteredAt *time.Time
	Loan           *gateway.Loan
	RefreshedAt    time.Time
}

// SnapshotRepository caches the last-seen copy of each loan
type SnapshotRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, logger *zap.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores or refreshes the snapshot for a loan
func (r *SnapshotRepository) Upsert(ctx context.Context, loan *gateway.Loan) error {
	payload, err := json.Marshal(loan)
	if err != nil {
		return fmt.Errorf("failed to marshal loan: %w", err)
	}

	query := `
		INSERT INTO loan_snapshots (loan_id, status, stage, amount, stage_entered_at, payload, refreshed_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(loan_id) DO UPDATE SET
			status = excluded.status,
			stage = excluded.stage,
			amount = excluded.amount,
			stage_entered_at = excluded.stage_entered_at,
			payload = excluded.payload,
			refreshed_at = CURRENT_TIMESTAMP
	`

	var stageEnteredAt interface{}
	if t := loan.StageEnteredAt(); t != nil {
		stageEnteredAt = t.UTC()
	}

	if _, err := r.db.ExecContext(ctx, query,
		loan.ID,
		string(loan.Status),
		string(loan.Stage),
		loan.Amount,
		stageEnteredAt,
		string(payload),
	); err != nil {
		r.logger.Error("Failed to upsert snapshot", zap.String("loan_id", loan.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// Get retrieves the snapshot for a loan, or nil when none is cached
func (r *SnapshotRepository) Get(ctx context.Context, loanID string) (*Snapshot, error) {
	query := `
		SELECT loan_id, status, stage, amount, stage_entered_at, payload, refreshed_at
		FROM loan_snapshots
		WHERE loan_id = ?
	`

	snap, err := r.scanOne(r.db.QueryRowContext(ctx, query, loanID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return snap, err
}

// ListActive retrieves snapshots for loans still waiting on a stage
func (r *SnapshotRepository) ListActive(ctx context.Context) ([]*Snapshot, error) {
	query := `
		SELECT loan_id, status, stage, amount, stage_entered_at, payload, refreshed_at
		FROM loan_snapshots
		WHERE status IN ('SUBMITTED', 'REVIEWED', 'APPROVED')
		ORDER BY refreshed_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list snapshots", zap.Error(err))
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		snap, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SnapshotRepository) scanOne(row *sql.Row) (*Snapshot, error) {
	return r.scan(row)
}

func (r *SnapshotRepository) scanRow(rows *sql.Rows) (*Snapshot, error) {
	return r.scan(rows)
}

func (r *SnapshotRepository) scan(row rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var payload string
	var stageEnteredAt sql.NullTime

	if err := row.Scan(
		&snap.LoanID,
		&snap.Status,
		&snap.Stage,
		&snap.Amount,
		&stageEnteredAt,
		&payload,
		&snap.RefreshedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	if stageEnteredAt.Valid {
		t := stageEnteredAt.Time
		snap.StageEnteredAt = &t
	}

	var loan gateway.Loan
	if err := json.Unmarshal([]byte(payload), &loan); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	snap.Loan = &loan

	return &snap, nil
}
