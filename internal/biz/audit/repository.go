package audit

import (
	"context"
	"encoding/json"
)

type Repo interface {
	Insert(ctx context.Context, entry *Entry) error
	// UpdateLastEvent 给任务最近一条审计行补写事件
	UpdateLastEvent(ctx context.Context, taskID uint64, eventType string, payload json.RawMessage) (uint64, error)
}
