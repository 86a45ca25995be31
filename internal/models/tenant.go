package models

const (
	TenantStatusActive   = "active"
	TenantStatusInactive = "inactive"
)

// Tenant 租户，即一个客户公司。其余业务数据都通过 tenant_id 归属到租户
type Tenant struct {
	BaseModel
	Name   string `json:"name" gorm:"uniqueIndex;not null;size:255"`
	Code   string `json:"code" gorm:"uniqueIndex;not null;size:50"` // 登录和运维命令中使用的短代码
	Status string `json:"status" gorm:"default:'active';size:20;index"`
}

func (Tenant) TableName() string {
	return "tenants"
}

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// ValidTenantStatus 状态只有启用和停用两种
func ValidTenantStatus(status string) bool {
	return status == TenantStatusActive || status == TenantStatusInactive
}
