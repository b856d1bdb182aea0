package auditrepo

import (
	"encoding/json"

	domain "github.com/taskflow/server/internal/biz/audit"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"gorm.io/datatypes"
)

type AuditPo struct {
	commonrepo.AppendOnly
	TaskID       uint64         `gorm:"column:task_id;not null;index:idx_audit_task_id"`
	ActorID      uint64         `gorm:"column:actor_id;not null"`
	Action       string         `gorm:"column:action;size:64;not null"`
	Diff         datatypes.JSON `gorm:"column:diff"`
	RequestBody  datatypes.JSON `gorm:"column:request_body"`
	EventType    *string        `gorm:"column:event_type;size:64"`
	EventPayload datatypes.JSON `gorm:"column:event_payload"`
}

func (AuditPo) TableName() string {
	return "task_audit_log"
}

func (po *AuditPo) FromDomain(in *domain.Entry) (*AuditPo, error) {
	out := &AuditPo{
		AppendOnly:   commonrepo.AppendOnly{ID: in.ID, CreatedAt: in.CreatedAt},
		TaskID:       in.TaskID,
		ActorID:      in.ActorID,
		Action:       in.Action,
		RequestBody:  rawJSON(in.RequestBody),
		EventType:    in.EventType,
		EventPayload: rawJSON(in.EventPayload),
	}
	if len(in.Diff) > 0 {
		bs, err := json.Marshal(in.Diff)
		if err != nil {
			return nil, err
		}
		out.Diff = bs
	}
	return out, nil
}

func (po *AuditPo) ToDomain() (*domain.Entry, error) {
	out := &domain.Entry{
		ID:           po.ID,
		CreatedAt:    po.CreatedAt,
		TaskID:       po.TaskID,
		ActorID:      po.ActorID,
		Action:       po.Action,
		RequestBody:  json.RawMessage(po.RequestBody),
		EventType:    po.EventType,
		EventPayload: json.RawMessage(po.EventPayload),
	}
	if len(po.Diff) > 0 {
		if err := json.Unmarshal(po.Diff, &out.Diff); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// rawJSON 空值存为 NULL
func rawJSON(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return datatypes.JSON(raw)
}
