package eventrepo

import (
	"time"

	domain "github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"gorm.io/datatypes"
)

type EventPo struct {
	commonrepo.AppendOnly
	TaskID  uint64                             `gorm:"column:task_id;not null;index"`
	AuditID uint64                             `gorm:"column:audit_id;not null;index"`
	Type    string                             `gorm:"column:event_type;size:64;not null"`
	ActorID uint64                             `gorm:"column:actor_id;not null"`
	Payload datatypes.JSONType[domain.Payload] `gorm:"column:payload"`
}

func (EventPo) TableName() string {
	return "task_events"
}

type RecipientPo struct {
	commonrepo.AppendOnly
	EventID uint64 `gorm:"column:event_id;not null;uniqueIndex:uk_event_recipient"`
	UserID  uint64 `gorm:"column:user_id;not null;uniqueIndex:uk_event_recipient;index"`
}

func (RecipientPo) TableName() string {
	return "task_event_recipients"
}

const lastErrorSize = 1000

type DeliveryPo struct {
	commonrepo.Mode
	EventID     uint64     `gorm:"column:event_id;not null;uniqueIndex:uk_event_delivery"`
	UserID      uint64     `gorm:"column:user_id;not null;uniqueIndex:uk_event_delivery"`
	Channel     string     `gorm:"column:channel;size:32;not null;uniqueIndex:uk_event_delivery;index:idx_delivery_pending"`
	Status      string     `gorm:"column:status;size:16;not null;index:idx_delivery_pending"`
	ExternalID  string     `gorm:"column:external_id;size:64"`
	MessageID   string     `gorm:"column:message_id;size:64"`
	Attempts    int        `gorm:"column:attempts;not null;default:0"`
	LastError   string     `gorm:"column:last_error;size:1000"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
}

func (DeliveryPo) TableName() string {
	return "task_event_deliveries"
}
