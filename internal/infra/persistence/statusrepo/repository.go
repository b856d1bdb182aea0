package statusrepo

import (
	"context"

	"github.com/google/wire"
	"github.com/samber/lo"
	domain "github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"gorm.io/gorm/clause"
)

var Provider = wire.NewSet(NewMysqlRepositoryImpl)

type MysqlRepositoryImpl struct {
	commonrepo.DefaultRepo
}

func NewMysqlRepositoryImpl(db commonrepo.DB) domain.Repo {
	return &MysqlRepositoryImpl{DefaultRepo: commonrepo.NewDefaultRepo(db)}
}

func (r *MysqlRepositoryImpl) List(ctx context.Context) ([]domain.Entry, error) {
	var pos []StatusPo
	if err := r.Db(ctx).Order("id").Find(&pos).Error; err != nil {
		return nil, err
	}
	return lo.Map(pos, func(po StatusPo, _ int) domain.Entry {
		return po.ToDomain()
	}), nil
}

func (r *MysqlRepositoryImpl) Seed(ctx context.Context, entries []domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	pos := lo.Map(entries, func(e domain.Entry, _ int) *StatusPo {
		return new(StatusPo).FromDomain(e)
	})
	return r.Db(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&pos).Error
}
