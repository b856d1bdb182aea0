package directory

import (
	"strings"

	"github.com/samber/lo"
)

// User 目录中的用户，只读
type User struct {
	ID         uint64
	FullName   string
	RoleID     uint64
	UnitID     *uint64
	Active     bool
	ExternalID *string // 已绑定的外部聊天账号
}

type Role struct {
	ID   uint64
	Name string
}

// Principal 当前请求的操作者。角色、部门、群组每次请求都从目录重新解析，不缓存
type Principal struct {
	UserID   uint64
	RoleID   uint64
	UnitPath string // 物化路径，如 "/1/4/9/"
	GroupIDs []uint64
}

// InUnitSubtree unitPath 为空表示不限制
func (p Principal) InUnitSubtree(unitPath string) bool {
	if unitPath == "" {
		return true
	}
	if p.UnitPath == "" {
		return false
	}
	return strings.HasPrefix(p.UnitPath, unitPath)
}

func (p Principal) InGroup(groupID uint64) bool {
	return lo.Contains(p.GroupIDs, groupID)
}
