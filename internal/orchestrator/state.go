package orchestrator

import "github.com/aditpras/loan-workflow/internal/gateway"

// ViewState is the observable state backing one list view. Each view owns its
// own copy; views never share state by reference and learn about each other's
// mutations only through the change-notification channel.
type ViewState struct {
	Items         []*gateway.Loan
	Loading       bool
	Error         string
	Page          int
	PageSize      int
	TotalItems    int
	SortField     string
	SortDirection string
	Search        string
}

// clone returns a copy safe to hand to observers; the items slice is copied
// so a later refresh cannot mutate what an observer already received.
func (s ViewState) clone() ViewState {
	out := s
	out.Items = make([]*gateway.Loan, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

// Query carries the filter parameters a view applies to its list
type Query struct {
	Page          int
	PageSize      int
	SortField     string
	SortDirection string
	Search        string
}
