package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/domain/errs"
)

func TestCheckTransitionTable(t *testing.T) {
	cases := []struct {
		action  Action
		from    status.Code
		want    status.Code
		wantErr bool
	}{
		{ActionReport, status.InProgress, status.WaitingApproval, false},
		{ActionReport, status.WaitingReport, status.WaitingApproval, false},
		{ActionReport, status.WaitingApproval, "", true},
		{ActionReport, status.Inbox, "", true},
		{ActionApprove, status.WaitingApproval, status.Done, false},
		{ActionApprove, status.InProgress, "", true},
		{ActionReject, status.WaitingApproval, status.WaitingReport, false},
		{ActionReject, status.Done, "", true},
		{ActionArchive, status.Done, status.Archived, false},
		{ActionArchive, status.Inbox, status.Archived, false},
		{ActionArchive, status.InProgress, status.Archived, false},
		{ActionArchive, status.WaitingApproval, status.Archived, false},
		{ActionArchive, status.Archived, "", true},
	}
	for _, tc := range cases {
		t.Run(string(tc.action)+"_from_"+string(tc.from), func(t *testing.T) {
			to, err := CheckTransition(tc.action, tc.from)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errs.IsKind(err, errs.KindConflict))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, to)
		})
	}
}

func TestConflictCarriesCurrentStatusAndAllowedFrom(t *testing.T) {
	_, err := CheckTransition(ActionApprove, status.InProgress)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.CodeTaskConflictStatus, e.Code)
	assert.Equal(t, "IN_PROGRESS", e.Details["current_status"])
	assert.Equal(t, []string{"WAITING_APPROVAL"}, e.Details["allowed_from"])
}

func TestTerminalStatesHaveNoForwardTransitions(t *testing.T) {
	for _, action := range []Action{ActionReport, ActionApprove, ActionReject} {
		assert.False(t, CanTransition(action, status.Done))
		assert.False(t, CanTransition(action, status.Archived))
	}
}

func TestUnknownActionIsValidationError(t *testing.T) {
	_, err := CheckTransition(Action("publish"), status.InProgress)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestScopeSameAs(t *testing.T) {
	one, two := uint64(1), uint64(2)
	assert.True(t, Scope{Kind: ScopeUnit, RefID: &one}.SameAs(Scope{Kind: ScopeUnit, RefID: &one}))
	assert.False(t, Scope{Kind: ScopeUnit, RefID: &one}.SameAs(Scope{Kind: ScopeUnit, RefID: &two}))
	assert.False(t, Scope{Kind: ScopeUnit}.SameAs(Scope{Kind: ScopeGroup}))
	assert.True(t, Scope{Kind: ScopeFunctional}.SameAs(Scope{Kind: ScopeFunctional}))
}

func TestApplyPatchReturnsPreviousCopy(t *testing.T) {
	tk := &Task{Title: "old", Status: status.InProgress}
	before := tk.Apply(NewTaskPatch().WithTitle("new").WithStatus(status.WaitingApproval))
	assert.Equal(t, "old", before.Title)
	assert.Equal(t, "new", tk.Title)
	assert.Equal(t, status.WaitingApproval, tk.Status)
}
