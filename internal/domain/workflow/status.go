package workflow

import "strings"

// LoanStatus represents a loan's position in the approval lifecycle
type LoanStatus string

const (
	StatusDraft     LoanStatus = "DRAFT"
	StatusSubmitted LoanStatus = "SUBMITTED"
	StatusReviewed  LoanStatus = "REVIEWED"
	StatusApproved  LoanStatus = "APPROVED"
	StatusDisbursed LoanStatus = "DISBURSED"
	StatusCompleted LoanStatus = "COMPLETED"
	StatusRejected  LoanStatus = "REJECTED"
	StatusRollback  LoanStatus = "ROLLBACK"
	StatusCancelled LoanStatus = "CANCELLED"
)

var validStatuses = map[LoanStatus]bool{
	StatusDraft:     true,
	StatusSubmitted: true,
	StatusReviewed:  true,
	StatusApproved:  true,
	StatusDisbursed: true,
	StatusCompleted: true,
	StatusRejected:  true,
	StatusRollback:  true,
	StatusCancelled: true,
}

var terminalStatuses = map[LoanStatus]bool{
	StatusCompleted: true,
	StatusRejected:  true,
	StatusCancelled: true,
}

// IsValid returns true if the status is a known lifecycle status
func (s LoanStatus) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if the status admits no further transitions
func (s LoanStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// Label returns the human-readable form of the status
func (s LoanStatus) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// String returns the string representation of the status
func (s LoanStatus) String() string {
	return string(s)
}

// Stage identifies the actor group currently holding the loan
type Stage string

const (
	StageCustomer      Stage = "CUSTOMER"
	StageMarketing     Stage = "MARKETING"
	StageBranchManager Stage = "BRANCH_MANAGER"
	StageBackOffice    Stage = "BACK_OFFICE"
)

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// Role is a permission identifier carried by the acting user
type Role string

const (
	RoleCustomer      Role = "CUSTOMER"
	RoleMarketing     Role = "MARKETING"
	RoleBranchManager Role = "BRANCH_MANAGER"
	RoleBackOffice    Role = "BACK_OFFICE"
)

// HasRole reports whether the given role appears in the role set
func HasRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
