package regulartaskrepo

import (
	"context"
	"errors"

	"github.com/google/wire"
	"github.com/samber/lo"
	domain "github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"gorm.io/gorm"
)

var Provider = wire.NewSet(NewMysqlRepositoryImpl)

type MysqlRepositoryImpl struct {
	commonrepo.DefaultRepo
}

func NewMysqlRepositoryImpl(db commonrepo.DB) domain.Repo {
	return &MysqlRepositoryImpl{DefaultRepo: commonrepo.NewDefaultRepo(db)}
}

func (r *MysqlRepositoryImpl) CreateTemplate(ctx context.Context, tpl *domain.Template) error {
	po := new(TemplatePo).FromDomain(tpl)
	if err := r.Db(ctx).Create(po).Error; err != nil {
		return commonrepo.TranslateError(err)
	}
	tpl.ID = po.ID
	tpl.CreatedAt = po.CreatedAt
	tpl.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *MysqlRepositoryImpl) GetTemplate(ctx context.Context, id uint64) (*domain.Template, error) {
	var po TemplatePo
	if err := r.Db(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return po.ToDomain(), nil
}

func (r *MysqlRepositoryImpl) ListTemplates(ctx context.Context, filter domain.TemplateFilter) ([]*domain.Template, error) {
	q := r.Db(ctx).Model(&TemplatePo{})
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var pos []*TemplatePo
	if err := q.Order("id").Find(&pos).Error; err != nil {
		return nil, err
	}
	return lo.Map(pos, func(po *TemplatePo, _ int) *domain.Template {
		return po.ToDomain()
	}), nil
}

func (r *MysqlRepositoryImpl) InsertRun(ctx context.Context, run *domain.Run) error {
	return r.Db(ctx).Create(new(RunPo).FromDomain(run)).Error
}

func (r *MysqlRepositoryImpl) InsertItem(ctx context.Context, item *domain.RunItem) error {
	po := new(RunItemPo).FromDomain(item)
	if err := r.Db(ctx).Create(po).Error; err != nil {
		return err
	}
	item.ID = po.ID
	item.CreatedAt = po.CreatedAt
	return nil
}

func (r *MysqlRepositoryImpl) ListItems(ctx context.Context, runID uint64) ([]*domain.RunItem, error) {
	var pos []*RunItemPo
	if err := r.Db(ctx).Where("run_id = ?", runID).Order("id").Find(&pos).Error; err != nil {
		return nil, err
	}
	return lo.Map(pos, func(po *RunItemPo, _ int) *domain.RunItem {
		return po.ToDomain()
	}), nil
}

func (r *MysqlRepositoryImpl) LatestCreated(ctx context.Context, templateID, periodID uint64) (*domain.RunItem, error) {
	var po RunItemPo
	err := r.Db(ctx).
		Where("template_id = ? AND period_id = ? AND outcome = ?", templateID, periodID, string(domain.OutcomeCreated)).
		Order("id DESC").
		Take(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return po.ToDomain(), nil
}
