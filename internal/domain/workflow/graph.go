package workflow

import "context"

// ApprovalGuard evaluates whether the caller's roles permit advancing a loan
type ApprovalGuard func(ctx context.Context, roles []Role) bool

// StatusNode describes one forward-progressing status: the stage holding it,
// the guard required to advance it, whether rollback is permitted, and the
// successor status.
type StatusNode struct {
	Status          LoanStatus
	Stage           Stage
	Approve         ApprovalGuard
	RollbackAllowed bool
	Next            LoanStatus
}

// Graph is the immutable status-transition table. Terminal and absorbing
// statuses have no node; callers treat an absent node as "no action
// available" rather than an error.
type Graph struct {
	nodes map[LoanStatus]*StatusNode
}

// Action is a lookup key for permission queries against the graph
type Action string

const (
	ActionApprove  Action = "APPROVE"
	ActionRollback Action = "ROLLBACK"
)

func anyCaller(_ context.Context, _ []Role) bool { return true }

func requireRole(want Role) ApprovalGuard {
	return func(_ context.Context, roles []Role) bool {
		return HasRole(roles, want)
	}
}

// NewGraph builds the status graph. It is constructed once at startup and
// never mutated.
func NewGraph() *Graph {
	nodes := map[LoanStatus]*StatusNode{
		StatusDraft: {
			Status:          StatusDraft,
			Stage:           StageCustomer,
			Approve:         anyCaller,
			RollbackAllowed: false,
			Next:            StatusSubmitted,
		},
		StatusSubmitted: {
			Status:          StatusSubmitted,
			Stage:           StageMarketing,
			Approve:         requireRole(RoleMarketing),
			RollbackAllowed: true,
			Next:            StatusReviewed,
		},
		StatusReviewed: {
			Status:          StatusReviewed,
			Stage:           StageBranchManager,
			Approve:         requireRole(RoleBranchManager),
			RollbackAllowed: true,
			Next:            StatusApproved,
		},
		StatusApproved: {
			Status:          StatusApproved,
			Stage:           StageBackOffice,
			Approve:         requireRole(RoleBackOffice),
			RollbackAllowed: true,
			Next:            StatusDisbursed,
		},
	}
	return &Graph{nodes: nodes}
}

// GetNode returns the node for the given status, or nil when the status has
// no forward transition (terminal, absorbing or unknown statuses).
func (g *Graph) GetNode(status LoanStatus) *StatusNode {
	return g.nodes[status]
}

// CanPerform reports whether the action is available for the status given the
// caller's roles. Absent nodes always report false.
func (g *Graph) CanPerform(ctx context.Context, status LoanStatus, action Action, roles []Role) bool {
	node := g.nodes[status]
	if node == nil {
		return false
	}
	switch action {
	case ActionApprove:
		return node.Approve(ctx, roles)
	case ActionRollback:
		return node.RollbackAllowed
	default:
		return false
	}
}

// NextStatus returns the successor status for a forward transition, or the
// zero value when none is defined.
func (g *Graph) NextStatus(status LoanStatus) LoanStatus {
	node := g.nodes[status]
	if node == nil {
		return ""
	}
	return node.Next
}

// StageFor returns the stage holding the given status. Terminal statuses
// belong to no stage.
func (g *Graph) StageFor(status LoanStatus) (Stage, bool) {
	node := g.nodes[status]
	if node == nil {
		return "", false
	}
	return node.Stage, true
}

// Advance returns the status a permitted forward transition lands on.
// Unknown statuses return ErrInvalidStatus; statuses without a node, and
// guards the caller's roles do not satisfy, return ErrInvalidTransition.
func (g *Graph) Advance(ctx context.Context, status LoanStatus, roles []Role) (LoanStatus, error) {
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	node := g.nodes[status]
	if node == nil || !node.Approve(ctx, roles) {
		return "", ErrInvalidTransition
	}
	return node.Next, nil
}
