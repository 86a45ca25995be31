package models

import (
	"time"
)

// 设备状态
const (
	EquipmentOperational  = "operational"
	EquipmentMaintenance  = "maintenance"
	EquipmentOffline      = "offline"
	EquipmentOutOfService = "out_of_service"
)

// 设备重要程度
const (
	CriticalityLow      = "low"
	CriticalityMedium   = "medium"
	CriticalityHigh     = "high"
	CriticalityCritical = "critical"
)

// Equipment 设备台账
type Equipment struct {
	BaseModel
	TenantID uint `gorm:"not null;uniqueIndex:idx_equipment_tenant_tag" json:"tenant_id"`

	// 基本信息
	Name         string `gorm:"size:100;not null" json:"name"`
	AssetTag     string `gorm:"size:50;not null;uniqueIndex:idx_equipment_tenant_tag" json:"asset_tag"`
	Category     string `gorm:"size:50" json:"category"`
	Manufacturer string `gorm:"size:100" json:"manufacturer"`
	Model        string `gorm:"size:100" json:"model"`
	SerialNumber string `gorm:"size:100" json:"serial_number"`
	Description  string `gorm:"type:text" json:"description"`

	// 位置与归属
	LocationID   *uint `gorm:"index" json:"location_id"`
	DepartmentID *uint `gorm:"index" json:"department_id"`

	// 状态
	Status              string     `gorm:"size:20;default:'operational'" json:"status"` // operational/maintenance/offline/out_of_service
	Criticality         string     `gorm:"size:20;default:'medium'" json:"criticality"` // low/medium/high/critical
	InstallationDate    *time.Time `json:"installation_date"`
	WarrantyExpiry      *time.Time `json:"warranty_expiry"`
	LastMaintenanceDate *time.Time `json:"last_maintenance_date"`

	CreatedBy uint `json:"created_by"`

	Location   *Location   `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

// TableName 指定表名
func (Equipment) TableName() string {
	return "equipment"
}

func IsValidCriticality(criticality string) bool {
	switch criticality {
	case CriticalityLow, CriticalityMedium, CriticalityHigh, CriticalityCritical:
		return true
	}
	return false
}

// IsValidEquipmentStatus 设备状态是否合法
func IsValidEquipmentStatus(status string) bool {
	switch status {
	case EquipmentOperational, EquipmentMaintenance, EquipmentOffline, EquipmentOutOfService:
		return true
	}
	return false
}

// OwnerTenantID 返回所属租户ID
func (e Equipment) OwnerTenantID() uint {
	return e.TenantID
}

// AssignTenant 设置所属租户
func (e *Equipment) AssignTenant(tenantID uint) {
	e.TenantID = tenantID
}
