package gateway

import (
	"context"
	"time"

	"github.com/aditpras/loan-workflow/internal/domain/workflow"
)

// Loan is the wire-format loan record owned by the remote service. Local
// copies are read-mostly caches and may be stale at any moment.
type Loan struct {
	ID          string              `json:"id"`
	CustomerID  string              `json:"customer_id"`
	ProductID   string              `json:"product_id"`
	ProductName string              `json:"product_name,omitempty"`
	Amount      float64             `json:"amount"`
	TenorMonths int                 `json:"tenor_months"`
	Status      workflow.LoanStatus `json:"status"`
	Stage       workflow.Stage      `json:"stage"`
	SubmittedAt *time.Time          `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time          `json:"reviewed_at,omitempty"`
	ApprovedAt  *time.Time          `json:"approved_at,omitempty"`
	DisbursedAt *time.Time          `json:"disbursed_at,omitempty"`
	Documents   []Document          `json:"documents,omitempty"`
	Location    *Location           `json:"location,omitempty"`
}

// Document is an attachment reference on a loan
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Location is an optional geotag captured at application time
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StageEnteredAt returns the timestamp at which the loan entered its current
// stage; the SLA window for the stage opens there.
func (l *Loan) StageEnteredAt() *time.Time {
	switch l.Status {
	case workflow.StatusSubmitted:
		return l.SubmittedAt
	case workflow.StatusReviewed:
		return l.ReviewedAt
	case workflow.StatusApproved:
		return l.ApprovedAt
	case workflow.StatusDisbursed:
		return l.DisbursedAt
	default:
		return nil
	}
}

// ListQuery carries pagination, sorting and search filters for loan lists
type ListQuery struct {
	Page          int
	PageSize      int
	SortField     string
	SortDirection string
	Search        string
	Status        workflow.LoanStatus
	Stage         workflow.Stage
}

// LoanPage is one page of a filtered loan list
type LoanPage struct {
	Items      []*Loan `json:"items"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalItems int     `json:"total_items"`
}

// DisburseRequest carries the back-office disbursement details
type DisburseRequest struct {
	Date            time.Time `json:"date"`
	ReferenceNumber string    `json:"reference_number"`
}

// LoanService is the remote loan-transport collaborator: list and read
// operations plus one remote call per lifecycle transition. Every call can
// fail with an *APIError carrying the remote HTTP status.
type LoanService interface {
	List(ctx context.Context, query ListQuery) (*LoanPage, error)
	GetByID(ctx context.Context, id string) (*Loan, error)

	Submit(ctx context.Context, id string) (*Loan, error)
	Review(ctx context.Context, id, notes string) (*Loan, error)
	Approve(ctx context.Context, id, notes string) (*Loan, error)
	Reject(ctx context.Context, id, reason string) (*Loan, error)
	Rollback(ctx context.Context, id, notes string) (*Loan, error)
	Disburse(ctx context.Context, id string, req DisburseRequest) (*Loan, error)
	Complete(ctx context.Context, id string) (*Loan, error)
	Cancel(ctx context.Context, id, reason string) (*Loan, error)
}
