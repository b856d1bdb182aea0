package workflow

import (
	"time"

	"github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/internal/biz/task"
)

// TaskView 返回给调用方的任务视图，allowed_actions 每次重新计算
type TaskView struct {
	Task           *task.Task
	Report         *task.Report
	AllowedActions []task.Action
}

type CreateInput struct {
	Title          string
	Description    string
	ExecutorRoleID uint64
	ApproverRoleID *uint64
	PeriodID       uint64
	Scope          *task.Scope
	DueDate        *time.Time
}

// PatchInput 初始状态下允许修改的字段
type PatchInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
}

func (in PatchInput) IsEmpty() bool {
	return in.Title == nil && in.Description == nil && in.DueDate == nil
}

type ReportInput struct {
	Link    string `json:"report_link"`
	Comment string `json:"comment,omitempty"`
}

type DecisionInput struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment,omitempty"`
}

type ListEventsInput struct {
	Cursor uint64
	Limit  int
	Type   string
}

// Config 工作流的可注入配置
type Config struct {
	DefaultScope task.ScopeKind
}

// eventFor 动作对应的事件，archive 不产生事件
func eventFor(action task.Action) (event.Type, bool) {
	switch action {
	case task.ActionReport:
		return event.TypeReportSubmitted, true
	case task.ActionApprove:
		return event.TypeApproved, true
	case task.ActionReject:
		return event.TypeRejected, true
	}
	return "", false
}
