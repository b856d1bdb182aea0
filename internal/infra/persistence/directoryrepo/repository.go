package directoryrepo

import (
	"context"
	"errors"

	"github.com/google/wire"
	domain "github.com/taskflow/server/internal/biz/directory"
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

func (r *MysqlRepositoryImpl) GetUser(ctx context.Context, userID uint64) (*domain.User, error) {
	var po UserPo
	if err := r.Db(ctx).Where("id = ?", userID).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return po.ToDomain(), nil
}

// Principal 每次请求都重新解析角色、部门和群组
func (r *MysqlRepositoryImpl) Principal(ctx context.Context, userID uint64) (*domain.Principal, error) {
	user, err := r.GetUser(ctx, userID)
	if err != nil || user == nil || !user.Active {
		return nil, err
	}
	pr := &domain.Principal{UserID: user.ID, RoleID: user.RoleID}
	if user.UnitID != nil {
		if pr.UnitPath, err = r.UnitPath(ctx, *user.UnitID); err != nil {
			return nil, err
		}
	}
	if err := r.Db(ctx).Model(&GroupMemberPo{}).Where("user_id = ?", userID).Pluck("group_id", &pr.GroupIDs).Error; err != nil {
		return nil, err
	}
	return pr, nil
}

func (r *MysqlRepositoryImpl) ActiveUserIDsByRoles(ctx context.Context, roleIDs []uint64) ([]uint64, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	var ids []uint64
	err := r.Db(ctx).Model(&UserPo{}).
		Where("role_id IN ? AND is_active = ?", roleIDs, true).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *MysqlRepositoryImpl) ExternalBindings(ctx context.Context, userIDs []uint64) (map[uint64]string, error) {
	out := make(map[uint64]string)
	if len(userIDs) == 0 {
		return out, nil
	}
	var pos []UserPo
	err := r.Db(ctx).Select("id", "external_chat_id").
		Where("id IN ? AND is_active = ? AND external_chat_id IS NOT NULL AND external_chat_id <> ''", userIDs, true).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}
	for _, po := range pos {
		out[po.ID] = *po.ExternalChatID
	}
	return out, nil
}

func (r *MysqlRepositoryImpl) GetRole(ctx context.Context, roleID uint64) (*domain.Role, error) {
	var po RolePo
	if err := r.Db(ctx).Where("id = ?", roleID).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return po.ToDomain(), nil
}

// UnitPath 单元不存在时返回空路径
func (r *MysqlRepositoryImpl) UnitPath(ctx context.Context, unitID uint64) (string, error) {
	var po OrgUnitPo
	if err := r.Db(ctx).Select("id", "path").Where("id = ?", unitID).First(&po).Error; err != nil {
		return "", commonrepo.IgnoreNotFound(err)
	}
	return po.Path, nil
}
