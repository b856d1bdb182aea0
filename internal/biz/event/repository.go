package event

import (
	"context"
	"time"
)

type Repo interface {
	InsertEvent(ctx context.Context, ev *Event) error
	// InsertRecipients 幂等，(event_id, user_id) 唯一
	InsertRecipients(ctx context.Context, eventID uint64, userIDs []uint64) error
	// InsertDeliveries 幂等，(event_id, user_id, channel) 唯一
	InsertDeliveries(ctx context.Context, deliveries []*Delivery) error
	ListForUser(ctx context.Context, filter ListFilter) ([]*Event, error)

	ListPending(ctx context.Context, channel string, limit int, maxAttempts int) ([]*PendingDelivery, error)
	// LockPending 在当前事务里锁住仍为 PENDING 的投递；被其他实例锁住或已处理时返回 false
	LockPending(ctx context.Context, deliveryID uint64) (bool, error)
	MarkSent(ctx context.Context, deliveryID uint64, messageID string, at time.Time) error
	MarkFailed(ctx context.Context, deliveryID uint64, reason string) error
}

// ListFilter Cursor 为审计ID，只返回大于游标的事件，按审计ID升序
type ListFilter struct {
	UserID uint64
	Cursor uint64
	Limit  int
	Type   *Type
}
