package directoryrepo

import "github.com/taskflow/server/internal/infra/persistence/commonrepo"

// 组织目录由外部系统维护，这里只映射需要读取的列

type UserPo struct {
	commonrepo.Mode
	FullName       string  `gorm:"column:full_name;size:255;not null"`
	RoleID         uint64  `gorm:"column:role_id;not null;index"`
	UnitID         *uint64 `gorm:"column:unit_id;index"`
	Active         bool    `gorm:"column:is_active;not null;default:true;index"`
	ExternalChatID *string `gorm:"column:external_chat_id;size:64"`
}

func (UserPo) TableName() string {
	return "users"
}

type RolePo struct {
	commonrepo.Mode
	Name string `gorm:"column:name;size:255;not null;uniqueIndex"`
}

func (RolePo) TableName() string {
	return "roles"
}

// OrgUnitPo Path 为物化路径，如 "/1/4/9/"
type OrgUnitPo struct {
	commonrepo.Mode
	ParentID *uint64 `gorm:"column:parent_id;index"`
	Name     string  `gorm:"column:name;size:255;not null"`
	Path     string  `gorm:"column:path;size:255;not null;index"`
}

func (OrgUnitPo) TableName() string {
	return "org_units"
}

type GroupMemberPo struct {
	commonrepo.AppendOnly
	GroupID uint64 `gorm:"column:group_id;not null;uniqueIndex:uk_group_member"`
	UserID  uint64 `gorm:"column:user_id;not null;uniqueIndex:uk_group_member;index"`
}

func (GroupMemberPo) TableName() string {
	return "user_group_members"
}
