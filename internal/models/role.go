package models

import (
	"gorm.io/datatypes"
)

// Role 角色模型，权限以JSON字符串数组保存
type Role struct {
	BaseModel
	TenantID     uint                        `gorm:"not null;uniqueIndex:idx_role_tenant_name" json:"tenant_id"`
	Name         string                      `gorm:"size:50;not null;uniqueIndex:idx_role_tenant_name" json:"name"` // 小写，如 "technician"
	DisplayName  string                      `gorm:"size:100;not null" json:"display_name"`
	Description  string                      `gorm:"type:text" json:"description"`
	Permissions  datatypes.JSONSlice[string] `json:"permissions"`
	IsSystemRole bool                        `gorm:"default:false" json:"is_system_role"` // 系统角色不可修改、删除
	IsActive     bool                        `gorm:"not null" json:"is_active"`
}

// OwnerTenantID 返回所属租户ID
func (r Role) OwnerTenantID() uint {
	return r.TenantID
}

// AssignTenant 设置所属租户
func (r *Role) AssignTenant(tenantID uint) {
	r.TenantID = tenantID
}

// IsAdmin 是否为超级角色
func (r *Role) IsAdmin() bool {
	return r.Name == RoleAdmin
}

// Grants 权限集合中是否包含指定权限
func (r *Role) Grants(permission string) bool {
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// 系统预定义角色
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleTechnician = "technician"
	RoleViewer     = "viewer"
)
