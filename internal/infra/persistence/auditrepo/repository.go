package auditrepo

import (
	"context"
	"encoding/json"

	"github.com/google/wire"
	domain "github.com/taskflow/server/internal/biz/audit"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var Provider = wire.NewSet(NewMysqlRepositoryImpl)

type MysqlRepositoryImpl struct {
	commonrepo.DefaultRepo
}

func NewMysqlRepositoryImpl(db commonrepo.DB) domain.Repo {
	return &MysqlRepositoryImpl{DefaultRepo: commonrepo.NewDefaultRepo(db)}
}

func (r *MysqlRepositoryImpl) Insert(ctx context.Context, entry *domain.Entry) error {
	po, err := new(AuditPo).FromDomain(entry)
	if err != nil {
		return err
	}
	if err := r.Db(ctx).Create(po).Error; err != nil {
		return err
	}
	entry.ID = po.ID
	entry.CreatedAt = po.CreatedAt
	return nil
}

// UpdateLastEvent 没有审计行时返回 gorm.ErrRecordNotFound
func (r *MysqlRepositoryImpl) UpdateLastEvent(ctx context.Context, taskID uint64, eventType string, payload json.RawMessage) (uint64, error) {
	var po AuditPo
	err := r.Db(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Select("id").
		Where("task_id = ?", taskID).
		Order("id DESC").
		Take(&po).Error
	if err != nil {
		return 0, err
	}
	res := r.Db(ctx).Model(&AuditPo{}).Where("id = ?", po.ID).Updates(map[string]any{
		"event_type":    eventType,
		"event_payload": rawJSON(payload),
	})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return po.ID, nil
}
