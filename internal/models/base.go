package models

import (
	"time"
)

// BaseModel 基础模型
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantOwned 属于某个租户的记录
type TenantOwned interface {
	OwnerTenantID() uint
}

// TenantModel 租户归属字段，所有业务表都需嵌入
type TenantModel struct {
	TenantID uint `json:"tenant_id" gorm:"not null;index"`
}

// OwnerTenantID 返回所属租户ID
func (m TenantModel) OwnerTenantID() uint {
	return m.TenantID
}

// AssignTenant 设置所属租户
func (m *TenantModel) AssignTenant(tenantID uint) {
	m.TenantID = tenantID
}
