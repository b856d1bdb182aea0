package periodrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/wire"
	domain "github.com/taskflow/server/internal/biz/period"
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

func (r *MysqlRepositoryImpl) Find(ctx context.Context, kind domain.Kind, start, end time.Time) (*domain.Period, error) {
	return r.find(r.Db(ctx), kind, start, end)
}

// FindLatest 共享锁读取最新提交的版本
func (r *MysqlRepositoryImpl) FindLatest(ctx context.Context, kind domain.Kind, start, end time.Time) (*domain.Period, error) {
	return r.find(r.Db(ctx).Clauses(clause.Locking{Strength: "SHARE"}), kind, start, end)
}

func (r *MysqlRepositoryImpl) find(db commonrepo.DB, kind domain.Kind, start, end time.Time) (*domain.Period, error) {
	var po PeriodPo
	err := db.
		Where("kind = ? AND start_date = ? AND end_date = ?", kind.String(), dateArg(start), dateArg(end)).
		Take(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return po.ToDomain(), nil
}

func (r *MysqlRepositoryImpl) Create(ctx context.Context, p *domain.Period) error {
	po := new(PeriodPo).FromDomain(p)
	if err := r.Db(ctx).Create(po).Error; err != nil {
		return commonrepo.TranslateError(err)
	}
	p.ID = po.ID
	p.CreatedAt = po.CreatedAt
	return nil
}

func (r *MysqlRepositoryImpl) GetByID(ctx context.Context, id uint64) (*domain.Period, error) {
	var po PeriodPo
	if err := r.Db(ctx).Where("id = ?", id).Take(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return po.ToDomain(), nil
}

// dateArg DATE 列按日历日期比较，避免会话时区影响
func dateArg(t time.Time) string {
	return t.Format(time.DateOnly)
}
