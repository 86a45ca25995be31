package models

// Inventory 备品备件库存
type Inventory struct {
	BaseModel
	TenantID uint `gorm:"not null;uniqueIndex:idx_inventory_tenant_part" json:"tenant_id"`

	PartNumber   string  `gorm:"size:50;not null;uniqueIndex:idx_inventory_tenant_part" json:"part_number"`
	Name         string  `gorm:"size:100;not null" json:"name"`
	Description  string  `gorm:"type:text" json:"description"`
	Category     string  `gorm:"size:50" json:"category"`
	CurrentStock int     `gorm:"default:0" json:"current_stock"`
	MinimumStock int     `gorm:"default:0" json:"minimum_stock"`
	MaximumStock int     `gorm:"default:0" json:"maximum_stock"`
	UnitCost     float64 `gorm:"default:0" json:"unit_cost"`
	Unit         string  `gorm:"size:20" json:"unit"`
	VendorID     *uint   `gorm:"index" json:"vendor_id"`
	LocationID   *uint   `gorm:"index" json:"location_id"`

	Vendor *Vendor `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
}

// TableName 指定表名
func (Inventory) TableName() string {
	return "inventory"
}

// IsLowStock 库存是否低于下限
func (i *Inventory) IsLowStock() bool {
	return i.CurrentStock <= i.MinimumStock
}

// OwnerTenantID 返回所属租户ID
func (i Inventory) OwnerTenantID() uint {
	return i.TenantID
}

// AssignTenant 设置所属租户
func (i *Inventory) AssignTenant(tenantID uint) {
	i.TenantID = tenantID
}
