package task

// ScopeKind 指派范围
type ScopeKind string

const (
	ScopeFunctional ScopeKind = "functional"
	ScopeAdmin      ScopeKind = "admin"
	ScopeDept       ScopeKind = "dept"
	ScopeUnit       ScopeKind = "unit"
	ScopeGroup      ScopeKind = "group"
	ScopeUser       ScopeKind = "user"
	ScopeRole       ScopeKind = "role"
)

func (k ScopeKind) Valid() bool {
	switch k {
	case ScopeFunctional, ScopeAdmin, ScopeDept, ScopeUnit, ScopeGroup, ScopeUser, ScopeRole:
		return true
	}
	return false
}

// NeedsRef 需要引用具体部门/群组/用户的范围
func (k ScopeKind) NeedsRef() bool {
	switch k {
	case ScopeAdmin, ScopeDept, ScopeUnit, ScopeGroup, ScopeUser:
		return true
	}
	return false
}

// IsUnitBased 按组织单元子树判定可见性的范围
func (k ScopeKind) IsUnitBased() bool {
	switch k {
	case ScopeAdmin, ScopeDept, ScopeUnit:
		return true
	}
	return false
}

// Action 工作流动作，封闭枚举
type Action string

const (
	ActionReport  Action = "report"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionArchive Action = "archive"
)

func (a Action) String() string {
	return string(a)
}

// AllActions 固定顺序，用于 allowed_actions 输出
var AllActions = []Action{ActionReport, ActionApprove, ActionReject, ActionArchive}
