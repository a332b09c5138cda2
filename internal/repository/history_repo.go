// Package repository persists the client-side bookkeeping: the transition
// audit trail and the last-seen loan snapshots.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TransitionRecord is one audit-trail entry for a transition this process performed
type TransitionRecord struct {
	ID             int64
	LoanID         string
	PreviousStatus string
	NewStatus      string
	Action         string
	Actor          string
	Notes          string
	CreatedAt      time.Time
}

// HistoryRepository stores the transition audit trail
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a transition record
func (r *HistoryRepository) Create(ctx context.Context, record *TransitionRecord) error {
	query := `
		INSERT INTO loan_history (
			loan_id, previous_status, new_status, action, actor, notes
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.LoanID,
		record.PreviousStatus,
		record.NewStatus,
		record.Action,
		record.Actor,
		record.Notes,
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.String("loan_id", record.LoanID),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// GetByLoanID retrieves all transition records for a loan, oldest first
func (r *HistoryRepository) GetByLoanID(ctx context.Context, loanID string) ([]*TransitionRecord, error) {
	query := `
		SELECT id, loan_id, previous_status, new_status, action, actor, notes, created_at
		FROM loan_history
		WHERE loan_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, loanID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.String("loan_id", loanID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*TransitionRecord
	for rows.Next() {
		var record TransitionRecord
		if err := rows.Scan(
			&record.ID,
			&record.LoanID,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.Action,
			&record.Actor,
			&record.Notes,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}
