package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aditpras/loan-workflow/internal/notify"
	"github.com/aditpras/loan-workflow/internal/repository"
	"github.com/aditpras/loan-workflow/internal/sla"
)

// SLAMonitor periodically scans cached loan snapshots and raises a
// notification when a stage window turns critical or expires. It notifies
// once per severity level per loan, not on every scan.
type SLAMonitor struct {
	snapshots *repository.SnapshotRepository
	tracker   *sla.Tracker
	notifier  notify.Notifier
	logger    *zap.Logger

	scanInterval time.Duration
	stageTargets map[string]time.Duration

	mu           sync.RWMutex
	isRunning    bool
	cancel       context.CancelFunc
	lastSeverity map[string]sla.Severity
}

// SLAMonitorConfig holds monitor settings
type SLAMonitorConfig struct {
	ScanInterval time.Duration

	// StageTargets maps stage name to its SLA window; stages without an
	// entry fall back to the 24 hour default.
	StageTargets map[string]time.Duration
}

// NewSLAMonitor creates a new SLA monitor worker
func NewSLAMonitor(
	snapshots *repository.SnapshotRepository,
	tracker *sla.Tracker,
	notifier notify.Notifier,
	cfg SLAMonitorConfig,
	logger *zap.Logger,
) *SLAMonitor {
	interval := cfg.ScanInterval
	if interval == 0 {
		interval = time.Minute
	}

	return &SLAMonitor{
		snapshots:    snapshots,
		tracker:      tracker,
		notifier:     notifier,
		logger:       logger,
		scanInterval: interval,
		stageTargets: cfg.StageTargets,
		lastSeverity: make(map[string]sla.Severity),
	}
}

// Name returns the worker name
func (m *SLAMonitor) Name() string {
	return "sla-monitor"
}

// Start starts the monitor loop
func (m *SLAMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("sla monitor is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.isRunning = true

	go m.run(runCtx)
	return nil
}

// Stop stops the monitor loop
func (m *SLAMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return
	}
	m.cancel()
	m.isRunning = false
}

func (m *SLAMonitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.scanInterval)
	defer ticker.Stop()

	m.scan(ctx)

	for {
		select {
		case <-ticker.C:
			m.scan(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *SLAMonitor) scan(ctx context.Context) {
	snapshots, err := m.snapshots.ListActive(ctx)
	if err != nil {
		m.logger.Error("SLA scan failed", zap.Error(err))
		return
	}

	for _, snap := range snapshots {
		if snap.StageEnteredAt == nil {
			continue
		}

		target := m.targetFor(snap.Stage)
		window := m.tracker.Evaluate(*snap.StageEnteredAt, target)

		if window.Severity != sla.SeverityCritical && window.Severity != sla.SeverityExpired {
			continue
		}

		m.mu.Lock()
		seen := m.lastSeverity[snap.LoanID]
		m.lastSeverity[snap.LoanID] = window.Severity
		m.mu.Unlock()
		if seen == window.Severity {
			continue
		}

		message := fmt.Sprintf("Loan %s has %s left in the %s stage window",
			snap.LoanID, sla.FormatDuration(window.RemainingSeconds), snap.Stage)
		severity := notify.SeverityWarning
		if window.Severity == sla.SeverityExpired {
			message = fmt.Sprintf("Loan %s exceeded its %s stage window", snap.LoanID, snap.Stage)
			severity = notify.SeverityError
		}

		m.notifier.Show(ctx, message, severity)
		m.logger.Warn("SLA window alert",
			zap.String("loan_id", snap.LoanID),
			zap.String("stage", snap.Stage),
			zap.String("severity", string(window.Severity)),
			zap.Int64("remaining_seconds", window.RemainingSeconds))
	}
}

func (m *SLAMonitor) targetFor(stage string) time.Duration {
	if target, ok := m.stageTargets[stage]; ok {
		return target
	}
	return sla.DefaultTargetHours * time.Hour
}
