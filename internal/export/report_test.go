package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/aditpras/loan-workflow/internal/domain/workflow"
	"github.com/aditpras/loan-workflow/internal/gateway"
	"github.com/aditpras/loan-workflow/internal/repository"
	"github.com/aditpras/loan-workflow/internal/sla"
	"github.com/aditpras/loan-workflow/internal/viewmodel"
	"github.com/aditpras/loan-workflow/pkg/database"
)

func TestReportWriter_WritePipeline(t *testing.T) {
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.NewMigrator(db, zap.NewNop()).RunMigrations())

	snapshots := repository.NewSnapshotRepository(db.DB, zap.NewNop())
	submitted := time.Now().Add(-2 * time.Hour)
	require.NoError(t, snapshots.Upsert(context.Background(), &gateway.Loan{
		ID:          "loan-1",
		CustomerID:  "cust-9",
		ProductName: "Micro Business Loan",
		Amount:      25000000,
		TenorMonths: 12,
		Status:      workflow.StatusSubmitted,
		Stage:       workflow.StageMarketing,
		SubmittedAt: &submitted,
	}))

	writer := NewReportWriter(
		snapshots,
		viewmodel.NewAdapter("id", "Rp"),
		sla.NewTracker(),
		nil,
		zap.NewNop(),
	)

	outputPath := filepath.Join(t.TempDir(), "pipeline.xlsx")
	require.NoError(t, writer.WritePipeline(context.Background(), outputPath))

	f, err := excelize.OpenFile(outputPath)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue(reportSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Loan ID", header)

	id, err := f.GetCellValue(reportSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "loan-1", id)

	amount, err := f.GetCellValue(reportSheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "Rp 25.000.000", amount)

	severity, err := f.GetCellValue(reportSheet, "I2")
	require.NoError(t, err)
	assert.Equal(t, "SAFE", severity)
}

func TestReportWriter_EmptyPipeline(t *testing.T) {
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.NewMigrator(db, zap.NewNop()).RunMigrations())

	writer := NewReportWriter(
		repository.NewSnapshotRepository(db.DB, zap.NewNop()),
		viewmodel.NewAdapter("id", "Rp"),
		sla.NewTracker(),
		nil,
		zap.NewNop(),
	)

	outputPath := filepath.Join(t.TempDir(), "pipeline.xlsx")
	require.NoError(t, writer.WritePipeline(context.Background(), outputPath))

	f, err := excelize.OpenFile(outputPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
