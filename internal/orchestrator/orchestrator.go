// Package orchestrator is the single point through which callers request
// loan-state changes. It checks permissions against the status graph, issues
// the remote call, folds the result back into the view state and broadcasts
// the change so every other view re-fetches its own query.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/aditpras/loan-workflow/internal/application/dispatcher"
	"github.com/aditpras/loan-workflow/internal/domain/workflow"
	"github.com/aditpras/loan-workflow/internal/gateway"
	"github.com/aditpras/loan-workflow/internal/notify"
	"github.com/aditpras/loan-workflow/internal/roles"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Orchestrator coordinates transitions for one view. Every instance owns its
// state exclusively; cross-view consistency happens via the publisher only.
type Orchestrator struct {
	service  gateway.LoanService
	graph    *workflow.Graph
	roles    roles.Provider
	notifier notify.Notifier
	events   *dispatcher.Publisher
	logger   Logger
	actor    string

	mu           sync.Mutex
	view         ViewState
	current      *gateway.Loan
	observers    map[int]func(ViewState)
	nextObserver int
	loadCancel   context.CancelFunc
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithActor sets the user identifier recorded on audit entries
func WithActor(actor string) Option {
	return func(o *Orchestrator) { o.actor = actor }
}

// WithPageSize sets the view's page size
func WithPageSize(size int) Option {
	return func(o *Orchestrator) { o.view.PageSize = size }
}

// New creates an orchestrator backing one view
func New(
	service gateway.LoanService,
	graph *workflow.Graph,
	roleProvider roles.Provider,
	notifier notify.Notifier,
	events *dispatcher.Publisher,
	logger Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		service:   service,
		graph:     graph,
		roles:     roleProvider,
		notifier:  notifier,
		events:    events,
		logger:    logger,
		observers: make(map[int]func(ViewState)),
		view: ViewState{
			Page:     1,
			PageSize: 10,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// View returns a copy of the current view state
func (o *Orchestrator) View() ViewState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view.clone()
}

// Current returns the loan last loaded or mutated through this instance
func (o *Orchestrator) Current() *gateway.Loan {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// OnChange registers an observer called with a state copy after every change.
// The returned function unsubscribes it.
func (o *Orchestrator) OnChange(fn func(ViewState)) func() {
	o.mu.Lock()
	id := o.nextObserver
	o.nextObserver++
	o.observers[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.observers, id)
		o.mu.Unlock()
	}
}

// SetQuery updates the view's filter parameters; the caller re-loads afterwards
func (o *Orchestrator) SetQuery(q Query) {
	o.mu.Lock()
	if q.Page > 0 {
		o.view.Page = q.Page
	}
	if q.PageSize > 0 {
		o.view.PageSize = q.PageSize
	}
	o.view.SortField = q.SortField
	o.view.SortDirection = q.SortDirection
	o.view.Search = q.Search
	o.mu.Unlock()
	o.publishState()
}

// LoadPage fetches the view's current page. Starting a new load cancels any
// load still in flight, so a slow stale response can never overwrite a newer
// one: last request wins.
func (o *Orchestrator) LoadPage(ctx context.Context) error {
	o.mu.Lock()
	if o.loadCancel != nil {
		o.loadCancel()
	}
	lctx, cancel := context.WithCancel(ctx)
	o.loadCancel = cancel

	query := gateway.ListQuery{
		Page:          o.view.Page,
		PageSize:      o.view.PageSize,
		SortField:     o.view.SortField,
		SortDirection: o.view.SortDirection,
		Search:        o.view.Search,
	}
	o.view.Loading = true
	o.view.Error = ""
	o.mu.Unlock()
	o.publishState()

	page, err := o.service.List(lctx, query)

	o.mu.Lock()
	if lctx.Err() != nil {
		// A newer load superseded this one; leave its result alone
		o.mu.Unlock()
		return lctx.Err()
	}
	o.loadCancel = nil

	if err != nil {
		o.view.Loading = false
		o.view.Error = err.Error()
		o.mu.Unlock()
		o.publishState()

		// 403 means the session lost access; the session layer handles it,
		// so no toast on top.
		if !gateway.IsForbidden(err) {
			o.notifier.Show(ctx, "Failed to load loans: "+err.Error(), notify.SeverityError)
		}
		o.logger.Error("Failed to load loan page", "error", err, "page", query.Page)
		return err
	}

	o.view.Items = page.Items
	o.view.TotalItems = page.TotalItems
	o.view.Loading = false
	o.view.Error = ""
	o.mu.Unlock()
	o.publishState()

	return nil
}

// Load fetches a single loan and makes it the current one
func (o *Orchestrator) Load(ctx context.Context, loanID string) (*gateway.Loan, error) {
	loan, err := o.service.GetByID(ctx, loanID)
	if err != nil {
		o.logger.Error("Failed to load loan", "error", err, "loan_id", loanID)
		return nil, err
	}
	o.setCurrent(loan)
	return loan, nil
}

// CanPerformAction reports whether the action is available for the status
// given the caller's current roles. Statuses without a graph node always
// report false; the UI hides the action rather than erroring.
func (o *Orchestrator) CanPerformAction(ctx context.Context, status workflow.LoanStatus, action workflow.Action) bool {
	callerRoles, err := o.roles.CurrentRoles(ctx)
	if err != nil {
		o.logger.Error("Failed to query roles", "error", err)
		return false
	}
	return o.graph.CanPerform(ctx, status, action, callerRoles)
}

// ActionAvailability describes which lifecycle actions the caller may take
// on a loan in a given status, and where a permitted approval would land.
type ActionAvailability struct {
	CanApprove  bool                `json:"can_approve"`
	CanRollback bool                `json:"can_rollback"`
	NextStatus  workflow.LoanStatus `json:"next_status,omitempty"`
	Stage       workflow.Stage      `json:"stage,omitempty"`
}

// AvailableActions resolves the caller's roles once and answers every action
// query for the status. UIs use it to decide which controls to render.
func (o *Orchestrator) AvailableActions(ctx context.Context, status workflow.LoanStatus) ActionAvailability {
	callerRoles, err := o.roles.CurrentRoles(ctx)
	if err != nil {
		o.logger.Error("Failed to query roles", "error", err)
		return ActionAvailability{}
	}

	out := ActionAvailability{
		CanApprove:  o.graph.CanPerform(ctx, status, workflow.ActionApprove, callerRoles),
		CanRollback: o.graph.CanPerform(ctx, status, workflow.ActionRollback, callerRoles),
	}
	if next, err := o.graph.Advance(ctx, status, callerRoles); err == nil {
		out.NextStatus = next
	}
	if stage, ok := o.graph.StageFor(status); ok {
		out.Stage = stage
	}
	return out
}

// Submit moves a draft application into the pipeline
func (o *Orchestrator) Submit(ctx context.Context, loanID string) (*gateway.Loan, error) {
	return o.transition(ctx, loanID, "submit", "", "Loan application submitted",
		func(ctx context.Context) (*gateway.Loan, error) {
			return o.service.Submit(ctx, loanID)
		})
}

// Review records the marketing review outcome
func (o *Orchestrator) Review(ctx context.Context, loanID, notes string) (*gateway.Loan, error) {
	return o.transition(ctx, loanID, "review", notes, "Loan reviewed",
		func(ctx context.Context) (*gateway.Loan, error) {
			return o.service.Review(ctx, loanID, notes)
		})
}

// Approve records the branch manager approval
func (o *Orchestrator) Approve(ctx context.Context, loanID, notes string) (*gateway.Loan, error) {
	return o.transition(ctx, loanID, "approve", notes, "Loan approved",
		func(ctx context.Context) (*gateway.Loan, error) {
			return o.service.Approve(ctx, loanID, notes)
		})
}

// Reject moves the loan to the rejected state
func (o *Orchestrator) Reject(ctx context.Context, loanID, reason string) (*gateway.Loan, error) {
	return o.transition(ctx, loanID, "reject", reason, "Loan rejected",
		func(ctx context.Context) (*gateway.Loan, error) {
			return o.service.Reject(ctx, loanID, reason)
		})
}

// Rollback returns the loan to the previous stage for correction
func (o *Orchestrator) Rollback(ctx context.Context, loanID, notes string) (*gateway.Loan, error) {
	return o.transition(ctx, loanID, "rollback", notes, "Loan rolled back for correction",
		func(ctx context.Context) (*gateway.Loan, error) {
			return o.service.Rollback(ctx, loanID, notes)
		})
}

// Disburse records the back-office disbursement
func (o *Orchestrator) Disburse(ctx context.Context, loanID string, req gateway.DisburseRequest) (*gateway.Loan, error) {
	return o.transition(ctx, loanID, "disburse", req.ReferenceNumber, "Loan disbursed",
		func(ctx context.Context) (*gateway.Loan, error) {
			return o.service.Disburse(ctx, loanID, req)
		})
}

// Complete closes out a disbursed loan
func (o *Orchestrator) Complete(ctx context.Context, loanID string) (*gateway.Loan, error) {
	return o.transition(ctx, loanID, "complete", "", "Loan completed",
		func(ctx context.Context) (*gateway.Loan, error) {
			return o.service.Complete(ctx, loanID)
		})
}

// Cancel withdraws the application
func (o *Orchestrator) Cancel(ctx context.Context, loanID, reason string) (*gateway.Loan, error) {
	return o.transition(ctx, loanID, "cancel", reason, "Loan application cancelled",
		func(ctx context.Context) (*gateway.Loan, error) {
			return o.service.Cancel(ctx, loanID, reason)
		})
}

// transition runs one remote lifecycle call with the shared bookkeeping:
// loading flag up, remote call, fold result into local state, user
// notification, change broadcast, and in all cases loading flag down plus a
// re-fetch of the view's current page.
func (o *Orchestrator) transition(
	ctx context.Context,
	loanID, action, notes, successMessage string,
	call func(context.Context) (*gateway.Loan, error),
) (*gateway.Loan, error) {
	previousStatus := o.cachedStatus(loanID)
	o.setLoading(true)

	defer func() {
		o.setLoading(false)
		if err := o.LoadPage(ctx); err != nil && ctx.Err() == nil {
			o.logger.Error("Failed to refresh view after transition", "error", err, "action", action)
		}
	}()

	loan, err := call(ctx)
	if err != nil {
		if gateway.IsConflict(err) {
			// Another actor advanced the loan first. Never retry the stale
			// transition; reload the source of truth instead.
			if reloaded, rerr := o.service.GetByID(ctx, loanID); rerr == nil {
				o.setCurrent(reloaded)
			} else {
				o.logger.Error("Failed to reload loan after conflict", "error", rerr, "loan_id", loanID)
			}
			o.notifier.Show(ctx, "Loan "+loanID+" was changed by someone else; showing the latest state", notify.SeverityWarning)
			return nil, err
		}

		o.notifier.Show(ctx, fmt.Sprintf("Failed to %s loan %s: %s", action, loanID, err.Error()), notify.SeverityError)
		o.logger.Error("Transition failed", "error", err, "action", action, "loan_id", loanID)
		return nil, err
	}

	o.setCurrent(loan)
	o.notifier.Show(ctx, successMessage, notify.SeveritySuccess)
	o.publishTransition(ctx, action, notes, previousStatus, loan)

	o.logger.Info("Transition completed",
		"action", action,
		"loan_id", loan.ID,
		"status", loan.Status)

	return loan, nil
}

func (o *Orchestrator) publishTransition(ctx context.Context, action, notes string, previousStatus workflow.LoanStatus, loan *gateway.Loan) {
	payload := map[string]interface{}{
		"action":          action,
		"notes":           notes,
		"actor":           o.actor,
		"previous_status": string(previousStatus),
		"new_status":      string(loan.Status),
		"loan":            loan,
	}

	var err error
	if action == "submit" {
		err = o.events.LoanApplied(ctx, loan.ID, payload)
	} else {
		err = o.events.LoanUpdated(ctx, loan.ID, payload)
	}
	if err != nil {
		o.logger.Error("Failed to broadcast loan change", "error", err, "loan_id", loan.ID)
	}
}

// cachedStatus returns the last-known status of a loan from this view's
// cache; empty when the loan was never seen here.
func (o *Orchestrator) cachedStatus(loanID string) workflow.LoanStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != nil && o.current.ID == loanID {
		return o.current.Status
	}
	for _, loan := range o.view.Items {
		if loan.ID == loanID {
			return loan.Status
		}
	}
	return ""
}

func (o *Orchestrator) setLoading(loading bool) {
	o.mu.Lock()
	o.view.Loading = loading
	o.mu.Unlock()
	o.publishState()
}

func (o *Orchestrator) setCurrent(loan *gateway.Loan) {
	o.mu.Lock()
	o.current = loan
	for i, item := range o.view.Items {
		if item.ID == loan.ID {
			o.view.Items[i] = loan
		}
	}
	o.mu.Unlock()
	o.publishState()
}

func (o *Orchestrator) publishState() {
	o.mu.Lock()
	state := o.view.clone()
	observers := make([]func(ViewState), 0, len(o.observers))
	for _, fn := range o.observers {
		observers = append(observers, fn)
	}
	o.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}
