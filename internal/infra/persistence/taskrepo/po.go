package taskrepo

import (
	"time"

	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
)

type TaskPo struct {
	commonrepo.Mode
	TemplateID     *uint64    `gorm:"column:template_id;index:idx_tasks_template_period"`
	PeriodID       uint64     `gorm:"column:period_id;not null;index:idx_tasks_template_period"`
	Title          string     `gorm:"column:title;size:500;not null"`
	Description    string     `gorm:"column:description;type:text"`
	InitiatorID    uint64     `gorm:"column:initiator_id;not null;index"`
	ExecutorRoleID uint64     `gorm:"column:executor_role_id;not null;index"`
	ApproverRoleID *uint64    `gorm:"column:approver_role_id"`
	ScopeKind      string     `gorm:"column:scope_kind;size:32;not null;default:'functional'"`
	ScopeRefID     *uint64    `gorm:"column:scope_ref_id"`
	ScopeUnitPath  string     `gorm:"column:scope_unit_path;size:255"`
	StatusID       uint64     `gorm:"column:status_id;not null;index"`
	DueDate        *time.Time `gorm:"column:due_date;type:date"`
}

func (TaskPo) TableName() string {
	return "tasks"
}

type ReportPo struct {
	commonrepo.Mode
	TaskID      uint64     `gorm:"column:task_id;not null;uniqueIndex"`
	SubmittedBy uint64     `gorm:"column:submitted_by;not null"`
	Link        string     `gorm:"column:report_link;size:1000;not null"`
	Comment     string     `gorm:"column:comment;type:text"`
	SubmittedAt time.Time  `gorm:"column:submitted_at;not null"`
	ApprovedAt  *time.Time `gorm:"column:approved_at"`
	ApprovedBy  *uint64    `gorm:"column:approved_by"`
}

func (ReportPo) TableName() string {
	return "task_reports"
}
