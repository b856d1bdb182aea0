package regulartaskrepo

import (
	"time"

	domain "github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"gorm.io/datatypes"
)

type TemplatePo struct {
	commonrepo.Mode
	Active           bool           `gorm:"column:is_active;not null;default:true;index"`
	Code             string         `gorm:"column:code;size:64"`
	Title            string         `gorm:"column:title;size:500"`
	Description      string         `gorm:"column:description;type:text"`
	ExecutorRoleID   uint64         `gorm:"column:executor_role_id;not null"`
	ApproverRoleID   *uint64        `gorm:"column:approver_role_id"`
	InitiatorID      uint64         `gorm:"column:initiator_id;not null"`
	ScopeKind        string         `gorm:"column:scope_kind;size:32"`
	ScopeRefID       *uint64        `gorm:"column:scope_ref_id"`
	ScopeUnitPath    string         `gorm:"column:scope_unit_path;size:255"`
	ScheduleType     string         `gorm:"column:schedule_type;size:16;not null"`
	ScheduleParams   datatypes.JSON `gorm:"column:schedule_params"`
	CreateOffsetDays int            `gorm:"column:create_offset_days;not null;default:0"`
	DueOffsetDays    int            `gorm:"column:due_offset_days;not null;default:0"`
}

func (TemplatePo) TableName() string {
	return "regular_tasks"
}

// RunPo id 由雪花算法生成
type RunPo struct {
	ID            uint64                           `gorm:"column:id;primaryKey;autoIncrement:false"`
	StartedAt     time.Time                        `gorm:"column:started_at;not null;index"`
	FinishedAt    time.Time                        `gorm:"column:finished_at;not null"`
	EffectiveDate time.Time                        `gorm:"column:effective_date;type:date;not null"`
	DryRun        bool                             `gorm:"column:dry_run;not null"`
	Forced        bool                             `gorm:"column:forced;not null"`
	Status        string                           `gorm:"column:status;size:16;not null"`
	Stats         datatypes.JSONType[domain.Stats] `gorm:"column:stats"`
	Errors        datatypes.JSONSlice[string]      `gorm:"column:errors"`
}

func (RunPo) TableName() string {
	return "regular_task_runs"
}

const messageSize = 1000

// RunItemPo message 超长时截断
type RunItemPo struct {
	commonrepo.AppendOnly
	RunID      uint64                              `gorm:"column:run_id;not null;index"`
	TemplateID uint64                              `gorm:"column:template_id;not null;index:idx_run_item_generated,priority:1"`
	Due        bool                                `gorm:"column:is_due;not null"`
	Outcome    string                              `gorm:"column:outcome;size:16;not null;index:idx_run_item_generated,priority:3"`
	TaskID     *uint64                             `gorm:"column:task_id"`
	PeriodID   *uint64                             `gorm:"column:period_id;index:idx_run_item_generated,priority:2"`
	Message    string                              `gorm:"column:message;size:1000"`
	Meta       datatypes.JSONType[domain.ItemMeta] `gorm:"column:meta"`
}

func (RunItemPo) TableName() string {
	return "regular_task_run_items"
}
