package audit

import (
	"encoding/json"
	"time"
)

// 审计动作名
const (
	ActionCreate          = "create"
	ActionPatch           = "patch"
	ActionReport          = "report"
	ActionApprove         = "approve"
	ActionReject          = "reject"
	ActionArchive         = "archive"
	ActionUpdateDueDate   = "update_due_date"
	ActionArchiveReassign = "archive_reassigned"
)

// FieldChange 单个字段的新旧值
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// Entry 审计日志行，只追加
type Entry struct {
	ID           uint64
	CreatedAt    time.Time
	TaskID       uint64
	ActorID      uint64 // 0 表示系统（周期任务引擎）
	Action       string
	Diff         []FieldChange
	RequestBody  json.RawMessage
	EventType    *string
	EventPayload json.RawMessage
}
