package event

import "time"

// Bindings 显式指定的通知对象，存在时覆盖默认受众
type Bindings struct {
	UserIDs []uint64 `json:"user_ids,omitempty"`
	RoleIDs []uint64 `json:"role_ids,omitempty"`
}

func (b *Bindings) IsEmpty() bool {
	return b == nil || (len(b.UserIDs) == 0 && len(b.RoleIDs) == 0)
}

// Payload 事件负载
type Payload struct {
	TaskID         uint64    `json:"task_id"`
	Title          string    `json:"title"`
	FromStatus     string    `json:"from_status,omitempty"`
	ToStatus       string    `json:"to_status,omitempty"`
	ReportLink     string    `json:"report_link,omitempty"`
	ReportAuthorID uint64    `json:"report_author_id,omitempty"`
	Comment        string    `json:"comment,omitempty"`
	DueDate        string    `json:"due_date,omitempty"`
	Bindings       *Bindings `json:"bindings,omitempty"`
}

type Event struct {
	ID        uint64
	CreatedAt time.Time
	TaskID    uint64
	AuditID   uint64
	Type      Type
	ActorID   uint64
	Payload   Payload
}

type Delivery struct {
	ID          uint64
	EventID     uint64
	UserID      uint64
	Channel     string
	Status      DeliveryStatus
	ExternalID  string // 接收人在外部通道的账号
	MessageID   string // 投递成功后的消息ID
	Attempts    int
	LastError   string
	DeliveredAt *time.Time
}

// PendingDelivery 待投递记录及其事件，供外部通道分发
type PendingDelivery struct {
	Delivery Delivery
	Event    Event
}
