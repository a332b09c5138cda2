package dispatcher

import (
	"context"
	"errors"

	"github.com/aditpras/loan-workflow/internal/domain/event"
)

// Publisher is the change-notification channel for loan mutations. It exposes
// the two broadcast topics views subscribe to: loan.applied carries the loan
// that entered the pipeline, loan.updated tells every list view to re-fetch
// its own query. Publishing loan.applied always also publishes loan.updated.
type Publisher struct {
	dispatcher Dispatcher
}

// NewPublisher wraps a dispatcher with the loan topic contract
func NewPublisher(d Dispatcher) *Publisher {
	return &Publisher{dispatcher: d}
}

// LoanApplied broadcasts that a loan application entered the pipeline,
// followed by a loan.updated broadcast on the same correlation chain. The
// loan.updated broadcast goes out even when an applied subscriber errors;
// list views must still re-fetch.
func (p *Publisher) LoanApplied(ctx context.Context, loanID string, payload map[string]interface{}) error {
	applied := event.NewEvent(event.TypeLoanApplied, loanID, payload)
	appliedErr := p.dispatcher.Dispatch(ctx, applied)

	updated := event.NewEventWithCorrelation(event.TypeLoanUpdated, loanID, payload, applied.CorrelationID)
	return errors.Join(appliedErr, p.dispatcher.Dispatch(ctx, updated))
}

// LoanUpdated broadcasts that a loan changed; subscribers re-read their own
// independently scoped queries.
func (p *Publisher) LoanUpdated(ctx context.Context, loanID string, payload map[string]interface{}) error {
	return p.dispatcher.Dispatch(ctx, event.NewEvent(event.TypeLoanUpdated, loanID, payload))
}

// OnLoanApplied subscribes a named handler to the loan.applied topic and
// returns an unsubscribe function.
func (p *Publisher) OnLoanApplied(name string, handler Handler) func() {
	p.dispatcher.SubscribeNamed(event.TypeLoanApplied, name, handler)
	return func() { p.dispatcher.Unsubscribe(event.TypeLoanApplied, name) }
}

// OnLoanUpdated subscribes a named handler to the loan.updated topic and
// returns an unsubscribe function.
func (p *Publisher) OnLoanUpdated(name string, handler Handler) func() {
	p.dispatcher.SubscribeNamed(event.TypeLoanUpdated, name, handler)
	return func() { p.dispatcher.Unsubscribe(event.TypeLoanUpdated, name) }
}
