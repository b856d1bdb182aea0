package directory

import "context"

// Repo 组织目录的能力查询。目录的增删改不在本服务内
type Repo interface {
	// Principal 用户不存在或已停用时返回 nil
	Principal(ctx context.Context, userID uint64) (*Principal, error)
	GetUser(ctx context.Context, userID uint64) (*User, error)
	// ActiveUserIDsByRoles 持有任一角色的在职用户
	ActiveUserIDsByRoles(ctx context.Context, roleIDs []uint64) ([]uint64, error)
	// ExternalBindings 只返回已绑定外部账号的用户
	ExternalBindings(ctx context.Context, userIDs []uint64) (map[uint64]string, error)
	GetRole(ctx context.Context, roleID uint64) (*Role, error)
	UnitPath(ctx context.Context, unitID uint64) (string, error)
}
