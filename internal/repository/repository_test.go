package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aditpras/loan-workflow/internal/domain/workflow"
	"github.com/aditpras/loan-workflow/internal/gateway"
	"github.com/aditpras/loan-workflow/pkg/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, zap.NewNop()).RunMigrations())
	return db
}

func TestHistoryRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewHistoryRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	first := &TransitionRecord{
		LoanID:         "loan-1",
		PreviousStatus: "DRAFT",
		NewStatus:      "SUBMITTED",
		Action:         "submit",
		Actor:          "cust-7",
	}
	require.NoError(t, repo.Create(ctx, first))
	assert.NotZero(t, first.ID)

	second := &TransitionRecord{
		LoanID:         "loan-1",
		PreviousStatus: "SUBMITTED",
		NewStatus:      "REVIEWED",
		Action:         "review",
		Actor:          "mkt-1",
		Notes:          "documents complete",
	}
	require.NoError(t, repo.Create(ctx, second))

	records, err := repo.GetByLoanID(ctx, "loan-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "submit", records[0].Action)
	assert.Equal(t, "review", records[1].Action)
	assert.Equal(t, "documents complete", records[1].Notes)

	none, err := repo.GetByLoanID(ctx, "loan-unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSnapshotRepository_UpsertAndList(t *testing.T) {
	db := newTestDB(t)
	repo := NewSnapshotRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	submittedAt := time.Now().Add(-2 * time.Hour).UTC().Truncate(time.Second)
	loan := &gateway.Loan{
		ID:          "loan-1",
		CustomerID:  "cust-7",
		Amount:      10000000,
		Status:      workflow.StatusSubmitted,
		Stage:       workflow.StageMarketing,
		SubmittedAt: &submittedAt,
	}
	require.NoError(t, repo.Upsert(ctx, loan))

	snap, err := repo.Get(ctx, "loan-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "SUBMITTED", snap.Status)
	require.NotNil(t, snap.StageEnteredAt)
	assert.Equal(t, "loan-1", snap.Loan.ID)

	// Refreshing with a new status replaces the cached copy
	loan.Status = workflow.StatusCompleted
	require.NoError(t, repo.Upsert(ctx, loan))

	snap, err = repo.Get(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", snap.Status)

	// Completed loans are not part of the active pipeline
	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSnapshotRepository_GetMissingReturnsNil(t *testing.T) {
	db := newTestDB(t)
	repo := NewSnapshotRepository(db.DB, zap.NewNop())

	snap, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, snap)
}
