// Package export renders the active loan pipeline as an XLSX report for
// branch operations. The report is built from local snapshots, so it reflects
// the last broadcast state of each loan rather than a fresh remote read.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/aditpras/loan-workflow/internal/repository"
	"github.com/aditpras/loan-workflow/internal/sla"
	"github.com/aditpras/loan-workflow/internal/viewmodel"
)

const reportSheet = "Pipeline"

var reportHeaders = []string{
	"Loan ID", "Customer", "Product", "Amount", "Tenor (months)",
	"Status", "Stage", "SLA Remaining", "SLA Severity",
}

// ReportWriter writes pipeline reports for loans still waiting on a stage
type ReportWriter struct {
	snapshots    *repository.SnapshotRepository
	adapter      *viewmodel.Adapter
	tracker      *sla.Tracker
	stageTargets map[string]time.Duration
	logger       *zap.Logger
}

// NewReportWriter creates a report writer over the snapshot store
func NewReportWriter(
	snapshots *repository.SnapshotRepository,
	adapter *viewmodel.Adapter,
	tracker *sla.Tracker,
	stageTargets map[string]time.Duration,
	logger *zap.Logger,
) *ReportWriter {
	return &ReportWriter{
		snapshots:    snapshots,
		adapter:      adapter,
		tracker:      tracker,
		stageTargets: stageTargets,
		logger:       logger,
	}
}

// WritePipeline writes the active pipeline report to outputPath
func (w *ReportWriter) WritePipeline(ctx context.Context, outputPath string) error {
	snapshots, err := w.snapshots.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pipeline snapshots: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return fmt.Errorf("failed to create report sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		w.logger.Warn("Failed to remove default sheet", zap.Error(err))
	}

	for col, header := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		w.setCell(f, cell, header)
	}

	for i, snap := range snapshots {
		row := i + 2
		view := w.adapter.ToView(snap.Loan)

		remaining := ""
		severity := ""
		if snap.StageEnteredAt != nil {
			window := w.tracker.Evaluate(*snap.StageEnteredAt, w.targetFor(snap.Stage))
			remaining = sla.FormatDuration(window.RemainingSeconds)
			severity = string(window.Severity)
		}

		values := []interface{}{
			view.ID,
			view.CustomerID,
			view.ProductName,
			view.AmountDisplay,
			view.TenorMonths,
			view.StatusLabel,
			string(view.Stage),
			remaining,
			severity,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			w.setCell(f, cell, value)
		}
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	w.logger.Info("Pipeline report written",
		zap.String("output_path", outputPath),
		zap.Int("loans", len(snapshots)))
	return nil
}

func (w *ReportWriter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(reportSheet, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func (w *ReportWriter) targetFor(stage string) time.Duration {
	if target, ok := w.stageTargets[stage]; ok {
		return target
	}
	return sla.DefaultTargetHours * time.Hour
}
