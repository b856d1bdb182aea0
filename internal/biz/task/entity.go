package task

import (
	"time"

	"github.com/taskflow/server/internal/biz/status"
)

type Scope struct {
	Kind     ScopeKind
	RefID    *uint64 // 部门/群组/用户ID，依 Kind 而定
	UnitPath string  // 部门类范围创建时解析的物化路径
}

// SameAs 去重比较只看 kind 和引用
func (s Scope) SameAs(o Scope) bool {
	if s.Kind != o.Kind {
		return false
	}
	if s.RefID == nil || o.RefID == nil {
		return s.RefID == nil && o.RefID == nil
	}
	return *s.RefID == *o.RefID
}

type Task struct {
	ID             uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	TemplateID     *uint64
	PeriodID       uint64
	Title          string
	Description    string
	InitiatorID    uint64
	ExecutorRoleID uint64
	ApproverRoleID *uint64 // 来自模板，仅 template_role 审批模式使用
	Scope          Scope
	Status         status.Code
	DueDate        *time.Time
}

func (t *Task) IsArchived() bool {
	return t.Status == status.Archived
}

// PatchableStatuses 只有初始状态允许修改字段
var PatchableStatuses = []status.Code{status.Inbox, status.InProgress}

// Report 每个任务至多一份有效报告
type Report struct {
	ID          uint64
	TaskID      uint64
	SubmittedBy uint64
	Link        string
	Comment     string
	SubmittedAt time.Time
	ApprovedAt  *time.Time
	ApprovedBy  *uint64
}

func (r *Report) IsApproved() bool {
	return r != nil && r.ApprovedAt != nil
}

type TaskPatch struct {
	Title          *string
	Description    *string
	DueDate        *time.Time
	Status         *status.Code
	ExecutorRoleID *uint64
}

func NewTaskPatch() *TaskPatch {
	return &TaskPatch{}
}

func (p *TaskPatch) WithTitle(title string) *TaskPatch {
	p.Title = &title
	return p
}

func (p *TaskPatch) WithDescription(description string) *TaskPatch {
	p.Description = &description
	return p
}

func (p *TaskPatch) WithDueDate(dueDate time.Time) *TaskPatch {
	p.DueDate = &dueDate
	return p
}

func (p *TaskPatch) WithStatus(s status.Code) *TaskPatch {
	p.Status = &s
	return p
}

func (p *TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil && p.Status == nil && p.ExecutorRoleID == nil
}

// Apply 将补丁应用到内存中的任务，返回变更前的副本
func (t *Task) Apply(p *TaskPatch) Task {
	before := *t
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ExecutorRoleID != nil {
		t.ExecutorRoleID = *p.ExecutorRoleID
	}
	return before
}
