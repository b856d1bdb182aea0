package eventrepo

import (
	"context"
	"time"

	"github.com/google/wire"
	"github.com/samber/lo"
	domain "github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var Provider = wire.NewSet(NewMysqlRepositoryImpl)

const recipientBatchSize = 500

type MysqlRepositoryImpl struct {
	commonrepo.DefaultRepo
	catalog *status.Catalog
}

func NewMysqlRepositoryImpl(db commonrepo.DB, catalog *status.Catalog) domain.Repo {
	return &MysqlRepositoryImpl{DefaultRepo: commonrepo.NewDefaultRepo(db), catalog: catalog}
}

func (r *MysqlRepositoryImpl) InsertEvent(ctx context.Context, ev *domain.Event) error {
	po := new(EventPo).FromDomain(ev)
	if err := r.Db(ctx).Create(po).Error; err != nil {
		return err
	}
	ev.ID = po.ID
	ev.CreatedAt = po.CreatedAt
	return nil
}

func (r *MysqlRepositoryImpl) InsertRecipients(ctx context.Context, eventID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	pos := lo.Map(userIDs, func(uid uint64, _ int) *RecipientPo {
		return &RecipientPo{EventID: eventID, UserID: uid}
	})
	return r.Db(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(pos, recipientBatchSize).Error
}

func (r *MysqlRepositoryImpl) InsertDeliveries(ctx context.Context, deliveries []*domain.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	pos := lo.Map(deliveries, func(d *domain.Delivery, _ int) *DeliveryPo {
		return new(DeliveryPo).FromDomain(d)
	})
	if err := r.Db(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(pos, recipientBatchSize).Error; err != nil {
		return err
	}
	for i, po := range pos {
		deliveries[i].ID = po.ID
	}
	return nil
}

// ListForUser 只返回用户作为接收人的事件，跳过已归档任务
func (r *MysqlRepositoryImpl) ListForUser(ctx context.Context, filter domain.ListFilter) ([]*domain.Event, error) {
	archivedID, err := r.catalog.ID(status.Archived)
	if err != nil {
		return nil, err
	}
	q := r.Db(ctx).Model(&EventPo{}).
		Select("task_events.*").
		Joins("JOIN task_event_recipients r ON r.event_id = task_events.id AND r.user_id = ?", filter.UserID).
		Joins("JOIN tasks t ON t.id = task_events.task_id").
		Where("task_events.audit_id > ?", filter.Cursor).
		Where("t.status_id <> ?", archivedID)
	if filter.Type != nil {
		q = q.Where("task_events.event_type = ?", filter.Type.String())
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var pos []*EventPo
	if err := q.Order("task_events.audit_id ASC").Find(&pos).Error; err != nil {
		return nil, err
	}
	return lo.Map(pos, func(po *EventPo, _ int) *domain.Event {
		return po.ToDomain()
	}), nil
}

// ListPending 按 id 顺序取待投递记录，跳过其他实例正在投递的行
func (r *MysqlRepositoryImpl) ListPending(ctx context.Context, channel string, limit int, maxAttempts int) ([]*domain.PendingDelivery, error) {
	q := r.Db(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked}).
		Where("channel = ? AND status = ?", channel, string(domain.DeliveryPending))
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var deliveries []*DeliveryPo
	if err := q.Order("id").Find(&deliveries).Error; err != nil {
		return nil, err
	}
	if len(deliveries) == 0 {
		return nil, nil
	}

	eventIDs := lo.Uniq(lo.Map(deliveries, func(d *DeliveryPo, _ int) uint64 { return d.EventID }))
	var events []*EventPo
	if err := r.Db(ctx).Where("id IN ?", eventIDs).Find(&events).Error; err != nil {
		return nil, err
	}
	byID := lo.KeyBy(events, func(e *EventPo) uint64 { return e.ID })

	return lo.Map(deliveries, func(d *DeliveryPo, _ int) *domain.PendingDelivery {
		out := &domain.PendingDelivery{Delivery: d.ToDomain()}
		if ev, ok := byID[d.EventID]; ok {
			out.Event = *ev.ToDomain()
		}
		return out
	}), nil
}

func (r *MysqlRepositoryImpl) LockPending(ctx context.Context, deliveryID uint64) (bool, error) {
	var ids []uint64
	err := r.Db(ctx).Model(&DeliveryPo{}).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked}).
		Where("id = ? AND status = ?", deliveryID, string(domain.DeliveryPending)).
		Pluck("id", &ids).Error
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (r *MysqlRepositoryImpl) MarkSent(ctx context.Context, deliveryID uint64, messageID string, at time.Time) error {
	return r.Db(ctx).Model(&DeliveryPo{}).
		Where("id = ? AND status = ?", deliveryID, string(domain.DeliveryPending)).
		Updates(map[string]any{
			"status":       string(domain.DeliverySent),
			"message_id":   messageID,
			"delivered_at": at,
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   "",
		}).Error
}

// MarkFailed 保持 PENDING，只累加尝试次数
func (r *MysqlRepositoryImpl) MarkFailed(ctx context.Context, deliveryID uint64, reason string) error {
	return r.Db(ctx).Model(&DeliveryPo{}).
		Where("id = ?", deliveryID).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": commonrepo.Truncate(reason, lastErrorSize),
		}).Error
}
