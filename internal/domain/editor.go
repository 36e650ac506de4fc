package domain

// HeadEditorPriority head editor 的优先级（最高权限）
const HeadEditorPriority = 1

// RoleAdmin 管理员角色
const RoleAdmin = "admin"

// Editor 编辑者（对应 editors 表）
type Editor struct {
	ID       string `json:"id" db:"editor_id"`
	Name     string `json:"name" db:"name"`
	Priority int    `json:"priority" db:"priority"` // 数值越小权限越高
	Role     string `json:"role" db:"role"`
}

// IsHeadEditor priority = 1
func (e *Editor) IsHeadEditor() bool {
	return e != nil && e.Priority == HeadEditorPriority
}

// IsAdmin 管理员角色
func (e *Editor) IsAdmin() bool {
	return e != nil && e.Role == RoleAdmin
}

// CanDecide 是否有权手动合并/驳回版本
func (e *Editor) CanDecide() bool {
	return e.IsHeadEditor() || e.IsAdmin()
}
