// Package recorder subscribes the local bookkeeping stores to the
// change-notification channel: every broadcast loan change lands in the
// transition audit trail and refreshes the snapshot cache.
package recorder

import (
	"context"
	"fmt"

	"github.com/aditpras/loan-workflow/internal/application/dispatcher"
	"github.com/aditpras/loan-workflow/internal/domain/event"
	"github.com/aditpras/loan-workflow/internal/gateway"
	"github.com/aditpras/loan-workflow/internal/repository"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Recorder persists loan changes broadcast on the notification channel
type Recorder struct {
	history   *repository.HistoryRepository
	snapshots *repository.SnapshotRepository
	logger    Logger

	unsubscribe func()
}

// New creates a recorder over the given stores
func New(history *repository.HistoryRepository, snapshots *repository.SnapshotRepository, logger Logger) *Recorder {
	return &Recorder{
		history:   history,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Attach subscribes the recorder to the loan.updated topic. loan.applied
// needs no separate subscription: applying always also broadcasts an update.
func (r *Recorder) Attach(publisher *dispatcher.Publisher) {
	r.unsubscribe = publisher.OnLoanUpdated("recorder", r.handle)
}

// Detach removes the subscription
func (r *Recorder) Detach() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

func (r *Recorder) handle(ctx context.Context, evt *event.Event) error {
	loan, ok := evt.Payload["loan"].(*gateway.Loan)
	if !ok {
		// Bare loan.updated broadcasts carry no record; nothing to persist
		return nil
	}

	record := &repository.TransitionRecord{
		LoanID:         evt.LoanID,
		PreviousStatus: evt.GetPayloadString("previous_status"),
		NewStatus:      evt.GetPayloadString("new_status"),
		Action:         evt.GetPayloadString("action"),
		Actor:          evt.GetPayloadString("actor"),
		Notes:          evt.GetPayloadString("notes"),
	}
	if err := r.history.Create(ctx, record); err != nil {
		return fmt.Errorf("record transition: %w", err)
	}

	if err := r.snapshots.Upsert(ctx, loan); err != nil {
		return fmt.Errorf("refresh snapshot: %w", err)
	}

	r.logger.Info("Transition recorded",
		"loan_id", evt.LoanID,
		"action", record.Action,
		"new_status", record.NewStatus)
	return nil
}
