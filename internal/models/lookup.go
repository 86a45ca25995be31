package models

// Location 位置
type Location struct {
	BaseModel
	TenantModel
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Address     string `gorm:"size:255" json:"address"`
	ParentID    *uint  `gorm:"index" json:"parent_id"`
}

// TableName 指定表名
func (Location) TableName() string {
	return "locations"
}

// Department 部门
type Department struct {
	BaseModel
	TenantModel
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// TableName 指定表名
func (Department) TableName() string {
	return "departments"
}

// Category 设备分类
type Category struct {
	BaseModel
	TenantModel
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// TableName 指定表名
func (Category) TableName() string {
	return "categories"
}

// Vendor 供应商
type Vendor struct {
	BaseModel
	TenantModel
	Name          string `gorm:"size:100;not null" json:"name"`
	ContactPerson string `gorm:"size:100" json:"contact_person"`
	Email         string `gorm:"size:120" json:"email"`
	Phone         string `gorm:"size:20" json:"phone"`
	Address       string `gorm:"type:text" json:"address"`
	Website       string `gorm:"size:200" json:"website"`
}

// TableName 指定表名
func (Vendor) TableName() string {
	return "vendors"
}
