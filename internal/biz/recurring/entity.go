package recurring

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/taskflow/server/internal/biz/period"
	"github.com/taskflow/server/internal/biz/task"
	"github.com/taskflow/server/internal/domain/errs"
)

// Template 周期任务模板
type Template struct {
	ID               uint64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Active           bool
	Code             string
	Title            string
	Description      string
	ExecutorRoleID   uint64
	ApproverRoleID   *uint64
	InitiatorID      uint64
	Scope            task.Scope
	ScheduleType     period.Kind
	ScheduleParams   json.RawMessage
	CreateOffsetDays int
	DueOffsetDays    int
}

// Validate 检查引擎生成任务所需的字段，调度参数另由 ParseSchedule 校验
func (t *Template) Validate() error {
	missing := func(field string) error {
		return errs.Configuration(errs.CodeTemplateMissingField, "template is missing a required field").
			WithReason(field + " is required").
			WithDetail("field", field)
	}
	switch {
	case strings.TrimSpace(t.Code) == "" && strings.TrimSpace(t.Title) == "":
		return missing("code")
	case t.ExecutorRoleID == 0:
		return missing("executor_role_id")
	case t.InitiatorID == 0:
		return missing("initiator_id")
	case !t.ScheduleType.Valid():
		return missing("schedule_type")
	}
	if t.Scope.Kind != "" {
		if !t.Scope.Kind.Valid() {
			return errs.Validation(errs.CodeTemplateInvalid, "invalid assignment scope").
				WithDetail("scope", string(t.Scope.Kind))
		}
		if t.Scope.Kind.NeedsRef() && t.Scope.RefID == nil {
			return missing("scope_ref_id")
		}
	}
	if t.CreateOffsetDays < 0 || t.DueOffsetDays < 0 {
		return errs.Validation(errs.CodeTemplateInvalid, "offsets must not be negative")
	}
	return nil
}

type RunStatus string

const (
	RunOK      RunStatus = "ok"
	RunPartial RunStatus = "partial"
)

// Stats 一次运行的汇总
type Stats struct {
	Scanned  int `json:"scanned"`
	Due      int `json:"due"`
	Created  int `json:"created"`
	Deduped  int `json:"deduped"`
	Archived int `json:"archived"`
	Errors   int `json:"errors"`
}

// Run 引擎的一次执行，结束时写入一次
type Run struct {
	ID            uint64
	StartedAt     time.Time
	FinishedAt    time.Time
	EffectiveDate time.Time
	DryRun        bool
	Forced        bool
	Status        RunStatus
	Stats         Stats
	Errors        []string
}

type Outcome string

const (
	OutcomeNotDue  Outcome = "not_due"
	OutcomeCreated Outcome = "created"
	OutcomeDeduped Outcome = "deduped"
	OutcomeError   Outcome = "error"
)

// ItemMeta 运行明细的上下文
type ItemMeta struct {
	Reason          string   `json:"reason,omitempty"`
	TargetDate      string   `json:"target_date,omitempty"`
	DueDate         string   `json:"due_date,omitempty"`
	PeriodLabel     string   `json:"period_label,omitempty"`
	ExecutorRoleID  uint64   `json:"executor_role_id,omitempty"`
	ArchivedTaskIDs []uint64 `json:"archived_task_ids,omitempty"`
	DueDateUpdated  bool     `json:"due_date_updated,omitempty"`
	GeneratedInRun  uint64   `json:"generated_in_run,omitempty"`
	Forced          bool     `json:"forced,omitempty"`
	ErrorCode       string   `json:"error_code,omitempty"`
}

// RunItem 每个模板一行，只追加
type RunItem struct {
	ID         uint64
	CreatedAt  time.Time
	RunID      uint64
	TemplateID uint64
	Due        bool
	Outcome    Outcome
	TaskID     *uint64
	PeriodID   *uint64
	Message    string
	Meta       ItemMeta
}
