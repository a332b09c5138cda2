package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_ForwardStatusesHaveNodes(t *testing.T) {
	g := NewGraph()

	tests := []struct {
		status LoanStatus
		stage  Stage
		next   LoanStatus
	}{
		{StatusDraft, StageCustomer, StatusSubmitted},
		{StatusSubmitted, StageMarketing, StatusReviewed},
		{StatusReviewed, StageBranchManager, StatusApproved},
		{StatusApproved, StageBackOffice, StatusDisbursed},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			node := g.GetNode(tt.status)
			require.NotNil(t, node)
			assert.Equal(t, tt.stage, node.Stage)
			assert.Equal(t, tt.next, node.Next)
		})
	}
}

func TestGraph_TerminalStatusesHaveNoNode(t *testing.T) {
	g := NewGraph()
	ctx := context.Background()
	allRoles := []Role{RoleCustomer, RoleMarketing, RoleBranchManager, RoleBackOffice}

	for _, status := range []LoanStatus{StatusDisbursed, StatusCompleted, StatusRejected, StatusRollback, StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			assert.Nil(t, g.GetNode(status))
			assert.False(t, g.CanPerform(ctx, status, ActionApprove, allRoles))
			assert.False(t, g.CanPerform(ctx, status, ActionRollback, allRoles))
		})
	}
}

func TestGraph_UnknownStatusIsNoAction(t *testing.T) {
	g := NewGraph()
	ctx := context.Background()

	assert.Nil(t, g.GetNode(LoanStatus("SOMETHING_ELSE")))
	assert.False(t, g.CanPerform(ctx, "SOMETHING_ELSE", ActionApprove, []Role{RoleMarketing}))
	assert.False(t, g.CanPerform(ctx, "SOMETHING_ELSE", ActionRollback, nil))
}

func TestGraph_ApprovalPredicates(t *testing.T) {
	g := NewGraph()
	ctx := context.Background()

	tests := []struct {
		name     string
		status   LoanStatus
		roles    []Role
		expected bool
	}{
		{"draft self-submission needs no role", StatusDraft, nil, true},
		{"submitted requires marketing", StatusSubmitted, []Role{RoleMarketing}, true},
		{"submitted rejects non-marketing", StatusSubmitted, []Role{RoleBranchManager, RoleBackOffice}, false},
		{"reviewed requires branch manager", StatusReviewed, []Role{RoleBranchManager}, true},
		{"reviewed rejects non-manager", StatusReviewed, []Role{RoleMarketing}, false},
		{"approved requires back office", StatusApproved, []Role{RoleBackOffice}, true},
		{"approved rejects non-back-office", StatusApproved, []Role{RoleMarketing, RoleBranchManager}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, g.CanPerform(ctx, tt.status, ActionApprove, tt.roles))
		})
	}
}

func TestGraph_RollbackFlags(t *testing.T) {
	g := NewGraph()
	ctx := context.Background()

	assert.False(t, g.CanPerform(ctx, StatusDraft, ActionRollback, nil))
	assert.True(t, g.CanPerform(ctx, StatusSubmitted, ActionRollback, nil))
	assert.True(t, g.CanPerform(ctx, StatusReviewed, ActionRollback, nil))
	assert.True(t, g.CanPerform(ctx, StatusApproved, ActionRollback, nil))
}

func TestGraph_Advance(t *testing.T) {
	g := NewGraph()
	ctx := context.Background()

	next, err := g.Advance(ctx, StatusSubmitted, []Role{RoleMarketing})
	require.NoError(t, err)
	assert.Equal(t, StatusReviewed, next)

	_, err = g.Advance(ctx, StatusSubmitted, []Role{RoleBackOffice})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = g.Advance(ctx, StatusCompleted, []Role{RoleBackOffice})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = g.Advance(ctx, "SOMETHING_ELSE", []Role{RoleMarketing})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestGraph_NextStatusAndStageFor(t *testing.T) {
	g := NewGraph()

	assert.Equal(t, StatusSubmitted, g.NextStatus(StatusDraft))
	assert.Equal(t, LoanStatus(""), g.NextStatus(StatusRejected))

	stage, ok := g.StageFor(StatusReviewed)
	require.True(t, ok)
	assert.Equal(t, StageBranchManager, stage)

	_, ok = g.StageFor(StatusCancelled)
	assert.False(t, ok)
}

func TestLoanStatus_Label(t *testing.T) {
	assert.Equal(t, "DRAFT", StatusDraft.Label())
	assert.Equal(t, "IN REVIEW", LoanStatus("IN_REVIEW").Label())
}

func TestLoanStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   LoanStatus
		expected bool
	}{
		{StatusDraft, false},
		{StatusSubmitted, false},
		{StatusReviewed, false},
		{StatusApproved, false},
		{StatusDisbursed, false},
		{StatusCompleted, true},
		{StatusRejected, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.expected {
				t.Errorf("LoanStatus.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}
