package eventrepo

import (
	domain "github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"gorm.io/datatypes"
)

func (po *EventPo) FromDomain(in *domain.Event) *EventPo {
	return &EventPo{
		AppendOnly: commonrepo.AppendOnly{ID: in.ID, CreatedAt: in.CreatedAt},
		TaskID:     in.TaskID,
		AuditID:    in.AuditID,
		Type:       in.Type.String(),
		ActorID:    in.ActorID,
		Payload:    datatypes.NewJSONType(in.Payload),
	}
}

func (po *EventPo) ToDomain() *domain.Event {
	return &domain.Event{
		ID:        po.ID,
		CreatedAt: po.CreatedAt,
		TaskID:    po.TaskID,
		AuditID:   po.AuditID,
		Type:      domain.Type(po.Type),
		ActorID:   po.ActorID,
		Payload:   po.Payload.Data(),
	}
}

func (po *DeliveryPo) FromDomain(in *domain.Delivery) *DeliveryPo {
	return &DeliveryPo{
		Mode:        commonrepo.Mode{ID: in.ID},
		EventID:     in.EventID,
		UserID:      in.UserID,
		Channel:     in.Channel,
		Status:      string(in.Status),
		ExternalID:  in.ExternalID,
		MessageID:   in.MessageID,
		Attempts:    in.Attempts,
		LastError:   in.LastError,
		DeliveredAt: in.DeliveredAt,
	}
}

func (po *DeliveryPo) ToDomain() domain.Delivery {
	return domain.Delivery{
		ID:          po.ID,
		EventID:     po.EventID,
		UserID:      po.UserID,
		Channel:     po.Channel,
		Status:      domain.DeliveryStatus(po.Status),
		ExternalID:  po.ExternalID,
		MessageID:   po.MessageID,
		Attempts:    po.Attempts,
		LastError:   po.LastError,
		DeliveredAt: po.DeliveredAt,
	}
}
