package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taskflow/server/internal/biz/directory"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/biz/task"
)

const (
	roleExecutor   uint64 = 10
	roleOther      uint64 = 11
	roleSupervisor uint64 = 90
	roleApprover   uint64 = 20
)

func ptr[T any](v T) *T { return &v }

func newTask(st status.Code) *task.Task {
	return &task.Task{
		ID:             1,
		InitiatorID:    100,
		ExecutorRoleID: roleExecutor,
		Scope:          task.Scope{Kind: task.ScopeFunctional},
		Status:         st,
	}
}

func supervisorPolicy(mode Mode) *Policy {
	return New(Config{Mode: mode, ApproverMode: ApproverSupervisor, PrivilegedRoleIDs: []uint64{roleSupervisor}})
}

func TestCanView(t *testing.T) {
	p := supervisorPolicy(ModeUnit)
	tk := newTask(status.InProgress)
	report := &task.Report{SubmittedBy: 300}

	assert.True(t, p.CanView(directory.Principal{UserID: 100, RoleID: roleOther}, Snapshot{Task: tk}), "initiator")
	assert.True(t, p.CanView(directory.Principal{UserID: 300, RoleID: roleOther}, Snapshot{Task: tk, Report: report}), "report author")
	assert.True(t, p.CanView(directory.Principal{UserID: 400, RoleID: roleSupervisor}, Snapshot{Task: tk}), "privileged")
	assert.True(t, p.CanView(directory.Principal{UserID: 500, RoleID: roleExecutor}, Snapshot{Task: tk}), "executor")
	assert.False(t, p.CanView(directory.Principal{UserID: 600, RoleID: roleOther}, Snapshot{Task: tk, Report: report}), "stranger")
}

func TestCanViewUnitScope(t *testing.T) {
	tk := newTask(status.InProgress)
	tk.Scope = task.Scope{Kind: task.ScopeUnit, RefID: ptr(uint64(4)), UnitPath: "/1/4/"}
	inside := directory.Principal{UserID: 500, RoleID: roleExecutor, UnitPath: "/1/4/9/"}
	outside := directory.Principal{UserID: 501, RoleID: roleExecutor, UnitPath: "/1/5/"}

	unit := supervisorPolicy(ModeUnit)
	assert.True(t, unit.CanView(inside, Snapshot{Task: tk}))
	assert.False(t, unit.CanView(outside, Snapshot{Task: tk}))

	off := supervisorPolicy(ModeOff)
	assert.True(t, off.CanView(outside, Snapshot{Task: tk}))
}

func TestCanViewGroupScope(t *testing.T) {
	tk := newTask(status.InProgress)
	tk.Scope = task.Scope{Kind: task.ScopeGroup, RefID: ptr(uint64(7))}
	member := directory.Principal{UserID: 500, RoleID: roleExecutor, GroupIDs: []uint64{7}}
	nonMember := directory.Principal{UserID: 501, RoleID: roleExecutor}

	p := supervisorPolicy(ModeGroup)
	assert.True(t, p.CanView(member, Snapshot{Task: tk}))
	assert.False(t, p.CanView(nonMember, Snapshot{Task: tk}))
	assert.True(t, supervisorPolicy(ModeOff).CanView(nonMember, Snapshot{Task: tk}))
}

func TestCanViewUserScope(t *testing.T) {
	tk := newTask(status.InProgress)
	tk.Scope = task.Scope{Kind: task.ScopeUser, RefID: ptr(uint64(500))}
	p := supervisorPolicy(ModeOff)
	assert.True(t, p.CanView(directory.Principal{UserID: 500, RoleID: roleExecutor}, Snapshot{Task: tk}))
	assert.False(t, p.CanView(directory.Principal{UserID: 501, RoleID: roleExecutor}, Snapshot{Task: tk}))
}

func TestCanReportOrUpdate(t *testing.T) {
	p := supervisorPolicy(ModeOff)
	executor := directory.Principal{UserID: 500, RoleID: roleExecutor}

	for _, st := range []status.Code{status.InProgress, status.WaitingReport} {
		assert.True(t, p.CanReportOrUpdate(executor, Snapshot{Task: newTask(st)}), st)
	}
	for _, st := range []status.Code{status.Inbox, status.WaitingApproval, status.Done, status.Archived} {
		assert.False(t, p.CanReportOrUpdate(executor, Snapshot{Task: newTask(st)}), st)
	}
	assert.False(t, p.CanReportOrUpdate(directory.Principal{UserID: 100, RoleID: roleOther}, Snapshot{Task: newTask(status.InProgress)}))
}

func TestNoSelfApproval(t *testing.T) {
	tk := newTask(status.WaitingApproval)
	tk.InitiatorID = 500
	report := &task.Report{SubmittedBy: 500}

	// 发起人同时是报告提交人，且持有特权角色，仍然不能审批
	pr := directory.Principal{UserID: 500, RoleID: roleSupervisor}
	assert.False(t, supervisorPolicy(ModeOff).CanApprove(pr, Snapshot{Task: tk, Report: report}))

	tk.ApproverRoleID = ptr(roleSupervisor)
	tp := New(Config{Mode: ModeOff, ApproverMode: ApproverTemplateRole})
	assert.False(t, tp.CanApprove(pr, Snapshot{Task: tk, Report: report}))
}

func TestCanApproveSupervisorMode(t *testing.T) {
	p := supervisorPolicy(ModeOff)
	tk := newTask(status.WaitingApproval)
	report := &task.Report{SubmittedBy: 500}

	assert.True(t, p.CanApprove(directory.Principal{UserID: 100, RoleID: roleOther}, Snapshot{Task: tk, Report: report}))
	assert.True(t, p.CanApprove(directory.Principal{UserID: 400, RoleID: roleSupervisor}, Snapshot{Task: tk, Report: report}))
	assert.False(t, p.CanApprove(directory.Principal{UserID: 401, RoleID: roleExecutor}, Snapshot{Task: tk, Report: report}))
	assert.False(t, p.CanApprove(directory.Principal{UserID: 100, RoleID: roleOther}, Snapshot{Task: newTask(status.InProgress), Report: report}))
}

func TestCanApproveTemplateRoleMode(t *testing.T) {
	p := New(Config{Mode: ModeOff, ApproverMode: ApproverTemplateRole, PrivilegedRoleIDs: []uint64{roleSupervisor}})
	tk := newTask(status.WaitingApproval)
	tk.ApproverRoleID = ptr(roleApprover)
	report := &task.Report{SubmittedBy: 500}

	assert.True(t, p.CanApprove(directory.Principal{UserID: 700, RoleID: roleApprover}, Snapshot{Task: tk, Report: report}))
	// 模板指定审批角色后，发起人和特权角色都不能代替审批
	assert.False(t, p.CanApprove(directory.Principal{UserID: 100, RoleID: roleOther}, Snapshot{Task: tk, Report: report}))
	assert.False(t, p.CanApprove(directory.Principal{UserID: 400, RoleID: roleSupervisor}, Snapshot{Task: tk, Report: report}))

	manual := newTask(status.WaitingApproval)
	assert.True(t, p.CanApprove(directory.Principal{UserID: 100, RoleID: roleOther}, Snapshot{Task: manual, Report: report}))
}

func TestAllowedActions(t *testing.T) {
	p := supervisorPolicy(ModeOff)
	initiator := directory.Principal{UserID: 100, RoleID: roleOther}
	executor := directory.Principal{UserID: 500, RoleID: roleExecutor}
	stranger := directory.Principal{UserID: 600, RoleID: roleOther}
	report := &task.Report{SubmittedBy: 500}

	assert.Equal(t, []task.Action{task.ActionReport}, p.AllowedActions(executor, Snapshot{Task: newTask(status.InProgress)}))
	assert.Equal(t, []task.Action{task.ActionArchive}, p.AllowedActions(initiator, Snapshot{Task: newTask(status.InProgress)}))
	assert.Equal(t,
		[]task.Action{task.ActionApprove, task.ActionReject, task.ActionArchive},
		p.AllowedActions(initiator, Snapshot{Task: newTask(status.WaitingApproval), Report: report}))
	assert.Empty(t, p.AllowedActions(executor, Snapshot{Task: newTask(status.WaitingApproval), Report: report}))
	assert.Empty(t, p.AllowedActions(initiator, Snapshot{Task: newTask(status.Archived)}))
	assert.Empty(t, p.AllowedActions(stranger, Snapshot{Task: newTask(status.InProgress)}))
}
