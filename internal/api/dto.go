package api

import (
	"time"

	"github.com/samber/lo"
	"github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/biz/task"
	"github.com/taskflow/server/internal/biz/workflow"
	"github.com/taskflow/server/internal/domain/errs"
)

const dateLayout = time.DateOnly

type IDReq struct {
	ID uint64 `uri:"id" binding:"required"`
}

type ScopeDTO struct {
	Kind     string  `json:"kind"`
	RefID    *uint64 `json:"ref_id,omitempty"`
	UnitPath string  `json:"unit_path,omitempty"`
}

type CreateTaskReq struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ExecutorRoleID uint64    `json:"executor_role_id"`
	ApproverRoleID *uint64   `json:"approver_role_id"`
	PeriodID       uint64    `json:"period_id"`
	Scope          *ScopeDTO `json:"scope"`
	DueDate        *string   `json:"due_date"`
}

type PatchTaskReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
}

type ReportReq struct {
	ReportLink string `json:"report_link"`
	Comment    string `json:"comment"`
}

type DecisionReq struct {
	Approve *bool  `json:"approve"`
	Comment string `json:"comment"`
}

type ListEventsReq struct {
	Cursor    uint64 `form:"cursor"`
	Limit     int    `form:"limit"`
	EventType string `form:"event_type"`
}

type ReportResp struct {
	ID          uint64     `json:"id"`
	SubmittedBy uint64     `json:"submitted_by"`
	ReportLink  string     `json:"report_link"`
	Comment     string     `json:"comment,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  *uint64    `json:"approved_by,omitempty"`
}

type TaskResp struct {
	ID             uint64      `json:"id"`
	TemplateID     *uint64     `json:"template_id,omitempty"`
	PeriodID       uint64      `json:"period_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	InitiatorID    uint64      `json:"initiator_id"`
	ExecutorRoleID uint64      `json:"executor_role_id"`
	ApproverRoleID *uint64     `json:"approver_role_id,omitempty"`
	Scope          ScopeDTO    `json:"scope"`
	Status         string      `json:"status"`
	DueDate        *string     `json:"due_date,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Report         *ReportResp `json:"report,omitempty"`
	AllowedActions []string    `json:"allowed_actions"`
}

type EventResp struct {
	ID        uint64        `json:"id"`
	AuditID   uint64        `json:"audit_id"`
	TaskID    uint64        `json:"task_id"`
	Type      string        `json:"event_type"`
	ActorID   uint64        `json:"actor_id"`
	Payload   event.Payload `json:"payload"`
	CreatedAt time.Time     `json:"created_at"`
}

type ListEventsResp struct {
	Items      []EventResp `json:"items"`
	NextCursor uint64      `json:"next_cursor"`
}

type RunReq struct {
	Date           string `json:"date"`
	DryRun         bool   `json:"dry_run"`
	IgnoreTimeGate bool   `json:"ignore_time_gate"`
	ForceDueAll    bool   `json:"force_due_all"`
}

type RunItemResp struct {
	TemplateID uint64             `json:"template_id"`
	Due        bool               `json:"due"`
	Outcome    string             `json:"outcome"`
	TaskID     *uint64            `json:"task_id,omitempty"`
	PeriodID   *uint64            `json:"period_id,omitempty"`
	Message    string             `json:"message,omitempty"`
	Meta       recurring.ItemMeta `json:"meta"`
}

type RunResp struct {
	RunID  uint64          `json:"run_id"`
	Status string          `json:"status"`
	DryRun bool            `json:"dry_run"`
	Date   string          `json:"date"`
	Stats  recurring.Stats `json:"stats"`
	Errors []string        `json:"errors,omitempty"`
	Items  []RunItemResp   `json:"items"`
}

type TemplateReq struct {
	Active           *bool          `json:"active"`
	Code             string         `json:"code"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	ExecutorRoleID   uint64         `json:"executor_role_id"`
	ApproverRoleID   *uint64        `json:"approver_role_id"`
	InitiatorID      uint64         `json:"initiator_id"`
	Scope            *ScopeDTO      `json:"scope"`
	ScheduleType     string         `json:"schedule_type"`
	ScheduleParams   map[string]any `json:"schedule_params"`
	CreateOffsetDays int            `json:"create_offset_days"`
	DueOffsetDays    int            `json:"due_offset_days"`
}

type TemplateResp struct {
	ID               uint64    `json:"id"`
	Active           bool      `json:"active"`
	Code             string    `json:"code,omitempty"`
	Title            string    `json:"title,omitempty"`
	Description      string    `json:"description,omitempty"`
	ExecutorRoleID   uint64    `json:"executor_role_id"`
	ApproverRoleID   *uint64   `json:"approver_role_id,omitempty"`
	InitiatorID      uint64    `json:"initiator_id"`
	Scope            *ScopeDTO `json:"scope,omitempty"`
	ScheduleType     string    `json:"schedule_type"`
	ScheduleParams   any       `json:"schedule_params"`
	CreateOffsetDays int       `json:"create_offset_days"`
	DueOffsetDays    int       `json:"due_offset_days"`
	CreatedAt        time.Time `json:"created_at"`
}

type ListTemplatesReq struct {
	ActiveOnly bool `form:"active_only"`
	Offset     int  `form:"offset"`
	Limit      int  `form:"limit"`
}

func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, errs.Validation(errs.CodeTaskInvalidInput, "invalid date").
			WithReason(field + " must be YYYY-MM-DD").
			WithDetail("field", field)
	}
	return &d, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return lo.ToPtr(t.Format(dateLayout))
}

func (s *ScopeDTO) toDomain() *task.Scope {
	if s == nil {
		return nil
	}
	return &task.Scope{Kind: task.ScopeKind(s.Kind), RefID: s.RefID, UnitPath: s.UnitPath}
}

func scopeDTO(s task.Scope) ScopeDTO {
	return ScopeDTO{Kind: string(s.Kind), RefID: s.RefID, UnitPath: s.UnitPath}
}

func toTaskResp(v *workflow.TaskView) TaskResp {
	t := v.Task
	resp := TaskResp{
		ID:             t.ID,
		TemplateID:     t.TemplateID,
		PeriodID:       t.PeriodID,
		Title:          t.Title,
		Description:    t.Description,
		InitiatorID:    t.InitiatorID,
		ExecutorRoleID: t.ExecutorRoleID,
		ApproverRoleID: t.ApproverRoleID,
		Scope:          scopeDTO(t.Scope),
		Status:         t.Status.String(),
		DueDate:        formatDate(t.DueDate),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		AllowedActions: lo.Map(v.AllowedActions, func(a task.Action, _ int) string { return string(a) }),
	}
	if r := v.Report; r != nil {
		resp.Report = &ReportResp{
			ID:          r.ID,
			SubmittedBy: r.SubmittedBy,
			ReportLink:  r.Link,
			Comment:     r.Comment,
			SubmittedAt: r.SubmittedAt,
			ApprovedAt:  r.ApprovedAt,
			ApprovedBy:  r.ApprovedBy,
		}
	}
	return resp
}

func toEventResp(ev *event.Event) EventResp {
	return EventResp{
		ID:        ev.ID,
		AuditID:   ev.AuditID,
		TaskID:    ev.TaskID,
		Type:      ev.Type.String(),
		ActorID:   ev.ActorID,
		Payload:   ev.Payload,
		CreatedAt: ev.CreatedAt,
	}
}

func toTemplateResp(t *recurring.Template) TemplateResp {
	resp := TemplateResp{
		ID:               t.ID,
		Active:           t.Active,
		Code:             t.Code,
		Title:            t.Title,
		Description:      t.Description,
		ExecutorRoleID:   t.ExecutorRoleID,
		ApproverRoleID:   t.ApproverRoleID,
		InitiatorID:      t.InitiatorID,
		ScheduleType:     t.ScheduleType.String(),
		ScheduleParams:   t.ScheduleParams,
		CreateOffsetDays: t.CreateOffsetDays,
		DueOffsetDays:    t.DueOffsetDays,
		CreatedAt:        t.CreatedAt,
	}
	if t.Scope.Kind != "" {
		resp.Scope = lo.ToPtr(scopeDTO(t.Scope))
	}
	return resp
}

func toRunResp(r *recurring.RunResult) RunResp {
	return RunResp{
		RunID:  r.RunID,
		Status: string(r.Status),
		DryRun: r.DryRun,
		Date:   r.Date.Format(dateLayout),
		Stats:  r.Stats,
		Errors: r.Errors,
		Items: lo.Map(r.Items, func(it *recurring.RunItem, _ int) RunItemResp {
			return RunItemResp{
				TemplateID: it.TemplateID,
				Due:        it.Due,
				Outcome:    string(it.Outcome),
				TaskID:     it.TaskID,
				PeriodID:   it.PeriodID,
				Message:    it.Message,
				Meta:       it.Meta,
			}
		}),
	}
}
