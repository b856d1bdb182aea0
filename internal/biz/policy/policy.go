package policy

import (
	"github.com/google/wire"
	"github.com/samber/lo"
	"github.com/taskflow/server/internal/biz/directory"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/biz/task"
)

var Provider = wire.NewSet(NewConfig, New)

// Snapshot 判定时刻的任务和当前报告
type Snapshot struct {
	Task   *task.Task
	Report *task.Report
}

// Policy 无副作用的权限判定。执行人按角色指派，因此每次调用都基于当前状态和角色重新判定
type Policy struct {
	cfg Config
}

func New(cfg Config) *Policy {
	return &Policy{cfg: cfg}
}

func (p *Policy) Config() Config {
	return p.cfg
}

func (p *Policy) IsPrivileged(roleID uint64) bool {
	return lo.Contains(p.cfg.PrivilegedRoleIDs, roleID)
}

// ScopeCompatible 执行角色匹配之后，再看任务的指派范围是否覆盖当前用户
func (p *Policy) ScopeCompatible(pr directory.Principal, scope task.Scope) bool {
	switch {
	case scope.Kind == task.ScopeUser:
		return scope.RefID != nil && *scope.RefID == pr.UserID
	case scope.Kind == task.ScopeGroup:
		if p.cfg.Mode == ModeOff {
			return true
		}
		return scope.RefID != nil && pr.InGroup(*scope.RefID)
	case scope.Kind.IsUnitBased():
		if p.cfg.Mode != ModeUnit {
			return true
		}
		return pr.InUnitSubtree(scope.UnitPath)
	default:
		return true
	}
}

func (p *Policy) IsInitiator(pr directory.Principal, t *task.Task) bool {
	return t.InitiatorID == pr.UserID
}

func (p *Policy) IsExecutor(pr directory.Principal, t *task.Task) bool {
	return t.ExecutorRoleID == pr.RoleID
}

func (p *Policy) IsReportAuthor(pr directory.Principal, r *task.Report) bool {
	return r != nil && r.SubmittedBy == pr.UserID
}

func (p *Policy) CanView(pr directory.Principal, s Snapshot) bool {
	if p.IsInitiator(pr, s.Task) || p.IsReportAuthor(pr, s.Report) || p.IsPrivileged(pr.RoleID) {
		return true
	}
	return p.IsExecutor(pr, s.Task) && p.ScopeCompatible(pr, s.Task.Scope)
}

// ReportableStatuses 驳回后任务回到 WAITING_REPORT，即"已驳回"状态
var ReportableStatuses = []status.Code{status.InProgress, status.WaitingReport}

func (p *Policy) CanReportOrUpdate(pr directory.Principal, s Snapshot) bool {
	return p.IsExecutor(pr, s.Task) && lo.Contains(ReportableStatuses, s.Task.Status)
}

// IsApprover 只看审批人身份，不看状态和自审
func (p *Policy) IsApprover(pr directory.Principal, s Snapshot) bool {
	switch p.cfg.ApproverMode {
	case ApproverTemplateRole:
		if s.Task.ApproverRoleID == nil {
			return p.IsInitiator(pr, s.Task)
		}
		return *s.Task.ApproverRoleID == pr.RoleID
	default:
		return p.IsInitiator(pr, s.Task) || p.IsPrivileged(pr.RoleID)
	}
}

// IsSelfApproval 报告提交人不能审批自己的报告，与角色无关
func (p *Policy) IsSelfApproval(pr directory.Principal, s Snapshot) bool {
	return p.IsReportAuthor(pr, s.Report)
}

func (p *Policy) CanApprove(pr directory.Principal, s Snapshot) bool {
	if s.Task.Status != status.WaitingApproval {
		return false
	}
	if p.IsSelfApproval(pr, s) {
		return false
	}
	return p.IsApprover(pr, s)
}

func (p *Policy) CanArchive(pr directory.Principal, s Snapshot) bool {
	return p.IsInitiator(pr, s.Task) && !s.Task.IsArchived()
}

func (p *Policy) AllowedActions(pr directory.Principal, s Snapshot) []task.Action {
	if !p.CanView(pr, s) {
		return []task.Action{}
	}
	return lo.Filter(task.AllActions, func(a task.Action, _ int) bool {
		switch a {
		case task.ActionReport:
			return p.CanReportOrUpdate(pr, s)
		case task.ActionApprove, task.ActionReject:
			return p.CanApprove(pr, s)
		case task.ActionArchive:
			return p.CanArchive(pr, s)
		}
		return false
	})
}
