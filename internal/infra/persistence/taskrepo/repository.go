package taskrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/wire"
	"github.com/taskflow/server/internal/biz/status"
	domain "github.com/taskflow/server/internal/biz/task"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var Provider = wire.NewSet(NewMysqlRepositoryImpl)

type MysqlRepositoryImpl struct {
	commonrepo.DefaultRepo
	catalog *status.Catalog
}

func NewMysqlRepositoryImpl(db commonrepo.DB, catalog *status.Catalog) domain.Repo {
	return &MysqlRepositoryImpl{DefaultRepo: commonrepo.NewDefaultRepo(db), catalog: catalog}
}

func (r *MysqlRepositoryImpl) Create(ctx context.Context, task *domain.Task) error {
	statusID, err := r.catalog.ID(task.Status)
	if err != nil {
		return err
	}
	po := new(TaskPo).FromDomain(task, statusID)
	if err := r.Db(ctx).Create(po).Error; err != nil {
		return commonrepo.TranslateError(err)
	}
	task.ID = po.ID
	task.CreatedAt = po.CreatedAt
	task.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *MysqlRepositoryImpl) GetByID(ctx context.Context, id uint64) (*domain.Task, error) {
	return r.get(ctx, r.Db(ctx), id)
}

func (r *MysqlRepositoryImpl) GetForUpdate(ctx context.Context, id uint64) (*domain.Task, error) {
	return r.get(ctx, r.Db(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *MysqlRepositoryImpl) get(_ context.Context, db commonrepo.DB, id uint64) (*domain.Task, error) {
	var po TaskPo
	if err := db.Where("id = ?", id).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.toDomain(&po)
}

func (r *MysqlRepositoryImpl) toDomain(po *TaskPo) (*domain.Task, error) {
	code, err := r.catalog.Code(po.StatusID)
	if err != nil {
		return nil, err
	}
	return po.ToDomain(code), nil
}

func (r *MysqlRepositoryImpl) Update(ctx context.Context, id uint64, patch *domain.TaskPatch) error {
	values, err := r.patchToMap(patch)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	return r.Db(ctx).Model(&TaskPo{}).Where("id = ?", id).Updates(values).Error
}

func (r *MysqlRepositoryImpl) FindActiveByTemplate(ctx context.Context, filter domain.TemplateTaskFilter, lock bool) ([]*domain.Task, error) {
	archivedID, err := r.catalog.ID(status.Archived)
	if err != nil {
		return nil, err
	}
	query := r.Db(ctx).Model(&TaskPo{}).
		Where("template_id = ? AND period_id = ? AND status_id <> ?", filter.TemplateID, filter.PeriodID, archivedID).
		Where("scope_kind = ?", string(filter.Scope.Kind))
	if filter.Scope.RefID != nil {
		query = query.Where("scope_ref_id = ?", *filter.Scope.RefID)
	} else {
		query = query.Where("scope_ref_id IS NULL")
	}
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var pos []TaskPo
	if err := query.Order("id").Find(&pos).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Task, 0, len(pos))
	for i := range pos {
		t, err := r.toDomain(&pos[i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *MysqlRepositoryImpl) GetReport(ctx context.Context, taskID uint64) (*domain.Report, error) {
	var po ReportPo
	if err := r.Db(ctx).Where("task_id = ?", taskID).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return po.ToDomain(), nil
}

// UpsertReport 重新提交时覆盖报告内容并清空审批字段
func (r *MysqlRepositoryImpl) UpsertReport(ctx context.Context, report *domain.Report) error {
	report.ApprovedAt = nil
	report.ApprovedBy = nil
	po := new(ReportPo).FromDomain(report)
	err := r.Db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"submitted_by", "report_link", "comment", "submitted_at", "approved_at", "approved_by", "updated_at"}),
	}).Create(po).Error
	if err != nil {
		return err
	}
	stored, err := r.GetReport(ctx, report.TaskID)
	if err != nil {
		return err
	}
	if stored != nil {
		report.ID = stored.ID
	}
	return nil
}

func (r *MysqlRepositoryImpl) SetReportApproval(ctx context.Context, taskID uint64, approvedAt *time.Time, approvedBy *uint64) error {
	res := r.Db(ctx).Model(&ReportPo{}).Where("task_id = ?", taskID).Updates(map[string]any{
		"approved_at": approvedAt,
		"approved_by": approvedBy,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
