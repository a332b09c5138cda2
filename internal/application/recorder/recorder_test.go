package recorder

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aditpras/loan-workflow/internal/application/dispatcher"
	"github.com/aditpras/loan-workflow/internal/domain/workflow"
	"github.com/aditpras/loan-workflow/internal/gateway"
	"github.com/aditpras/loan-workflow/internal/repository"
	"github.com/aditpras/loan-workflow/pkg/database"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func TestRecorder_PersistsBroadcastTransitions(t *testing.T) {
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.NewMigrator(db, zap.NewNop()).RunMigrations())

	history := repository.NewHistoryRepository(db.DB, zap.NewNop())
	snapshots := repository.NewSnapshotRepository(db.DB, zap.NewNop())

	d := dispatcher.NewDispatcher()
	defer d.Close()
	publisher := dispatcher.NewPublisher(d)

	rec := New(history, snapshots, nopLogger{})
	rec.Attach(publisher)
	defer rec.Detach()

	loan := &gateway.Loan{ID: "loan-1", Status: workflow.StatusReviewed, Stage: workflow.StageBranchManager}
	err = publisher.LoanUpdated(context.Background(), "loan-1", map[string]interface{}{
		"action":          "review",
		"actor":           "mkt-1",
		"notes":           "ok",
		"previous_status": "SUBMITTED",
		"new_status":      "REVIEWED",
		"loan":            loan,
	})
	require.NoError(t, err)

	records, err := history.GetByLoanID(context.Background(), "loan-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "review", records[0].Action)
	assert.Equal(t, "SUBMITTED", records[0].PreviousStatus)

	snap, err := snapshots.Get(context.Background(), "loan-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "REVIEWED", snap.Status)
}

func TestRecorder_IgnoresBareUpdates(t *testing.T) {
	d := dispatcher.NewDispatcher()
	defer d.Close()
	publisher := dispatcher.NewPublisher(d)

	// nil repos would panic if the handler tried to persist
	rec := New(nil, nil, nopLogger{})
	rec.Attach(publisher)
	defer rec.Detach()

	err := publisher.LoanUpdated(context.Background(), "loan-1", nil)
	assert.NoError(t, err)
}
