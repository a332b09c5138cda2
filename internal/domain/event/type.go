package event

// Type identifies the type of domain event
type Type string

const (
	// TypeLoanApplied fires when a loan application is submitted into the pipeline
	TypeLoanApplied Type = "loan.applied"

	// TypeLoanUpdated fires whenever any loan changed; list views re-fetch on it
	TypeLoanUpdated Type = "loan.updated"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeLoanApplied, TypeLoanUpdated:
		return true
	default:
		return false
	}
}
