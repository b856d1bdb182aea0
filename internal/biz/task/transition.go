package task

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/domain/errs"
)

type Transition struct {
	From []status.Code
	To   status.Code
}

// Transitions 唯一的状态迁移表
var Transitions = map[Action]Transition{
	ActionReport: {
		From: []status.Code{status.WaitingReport, status.InProgress},
		To:   status.WaitingApproval,
	},
	ActionApprove: {
		From: []status.Code{status.WaitingApproval},
		To:   status.Done,
	},
	ActionReject: {
		From: []status.Code{status.WaitingApproval},
		To:   status.WaitingReport,
	},
	ActionArchive: {
		From: []status.Code{status.Inbox, status.InProgress, status.WaitingReport, status.WaitingApproval, status.Done},
		To:   status.Archived,
	},
}

// CanTransition 仅检查状态，不涉及权限
func CanTransition(action Action, current status.Code) bool {
	t, ok := Transitions[action]
	return ok && lo.Contains(t.From, current)
}

// CheckTransition 返回目标状态；状态不匹配时返回携带当前状态和允许来源的冲突错误
func CheckTransition(action Action, current status.Code) (status.Code, error) {
	t, ok := Transitions[action]
	if !ok {
		return "", errs.Validation(errs.CodeTaskInvalidInput, fmt.Sprintf("unknown action %q", action))
	}
	if !lo.Contains(t.From, current) {
		return "", ConflictStatus(errs.CodeTaskConflictStatus, action.String(), current, t.From)
	}
	return t.To, nil
}

// ConflictStatus 状态冲突错误，供 patch 等非迁移操作复用
func ConflictStatus(code, operation string, current status.Code, allowed []status.Code) *errs.Error {
	allowedFrom := lo.Map(allowed, func(c status.Code, _ int) string { return c.String() })
	return errs.Conflict(code, fmt.Sprintf("cannot %s task in status %s", operation, current)).
		WithReason(fmt.Sprintf("%s is allowed only from %v", operation, allowedFrom)).
		WithHint("reload the task and retry after its status changes").
		WithDetail("current_status", current.String()).
		WithDetail("allowed_from", allowedFrom)
}
