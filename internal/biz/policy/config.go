package policy

import "github.com/taskflow/server/pkg/config"

// Mode RBAC 可见性模式
type Mode string

const (
	ModeOff   Mode = "off"   // 只看角色
	ModeUnit  Mode = "unit"  // 组织单元子树
	ModeGroup Mode = "group" // 显式群组成员
)

// ApproverMode 谁可以审批。两种策略互斥，不混用
type ApproverMode string

const (
	// ApproverSupervisor 发起人或特权角色
	ApproverSupervisor ApproverMode = "supervisor"
	// ApproverTemplateRole 模板配置的审批角色；无审批角色的任务只允许发起人审批
	ApproverTemplateRole ApproverMode = "template_role"
)

type Config struct {
	Mode              Mode
	ApproverMode      ApproverMode
	PrivilegedRoleIDs []uint64
}

// NewConfig 从应用配置构造，供 wire 注入
func NewConfig(cfg config.Config) Config {
	return Config{
		Mode:              Mode(cfg.RBAC.Mode),
		ApproverMode:      ApproverMode(cfg.RBAC.ApproverMode),
		PrivilegedRoleIDs: cfg.RBAC.PrivilegedRoleIDs,
	}
}
