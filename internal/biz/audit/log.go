package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/wire"
	"github.com/taskflow/server/internal/biz/task"
)

var Provider = wire.NewSet(NewLog)

type Log struct {
	repo Repo
}

func NewLog(repo Repo) *Log {
	return &Log{repo: repo}
}

// Append 写入一行审计，返回的ID同时作为事件游标
func (l *Log) Append(ctx context.Context, entry Entry) (uint64, error) {
	if entry.TaskID == 0 || entry.Action == "" {
		return 0, fmt.Errorf("audit entry requires task id and action")
	}
	if err := l.repo.Insert(ctx, &entry); err != nil {
		return 0, fmt.Errorf("failed to append audit entry: %w", err)
	}
	return entry.ID, nil
}

// AttachEventToLast 给最近一条审计行补写事件类型。
//
// Deprecated: 新代码在 Append 时直接传入 EventType。
func (l *Log) AttachEventToLast(ctx context.Context, taskID uint64, eventType string, payload any) (uint64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode event payload: %w", err)
	}
	return l.repo.UpdateLastEvent(ctx, taskID, eventType, raw)
}

// RawBody 编码请求体，编码失败时记录为空
func RawBody(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

// Diff 对比任务可变字段
func Diff(before, after task.Task) []FieldChange {
	var changes []FieldChange
	add := func(field string, oldValue, newValue any) {
		changes = append(changes, FieldChange{Field: field, Old: oldValue, New: newValue})
	}
	if before.Title != after.Title {
		add("title", before.Title, after.Title)
	}
	if before.Description != after.Description {
		add("description", before.Description, after.Description)
	}
	if before.Status != after.Status {
		add("status", before.Status.String(), after.Status.String())
	}
	if before.ExecutorRoleID != after.ExecutorRoleID {
		add("executor_role_id", before.ExecutorRoleID, after.ExecutorRoleID)
	}
	if !sameDate(before.DueDate, after.DueDate) {
		add("due_date", formatDate(before.DueDate), formatDate(after.DueDate))
	}
	return changes
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}
