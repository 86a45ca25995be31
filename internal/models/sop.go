package models

// SOP 标准作业程序
type SOP struct {
	BaseModel
	TenantModel

	Title             string `gorm:"size:200;not null" json:"title"`
	Description       string `gorm:"type:text" json:"description"`
	Category          string `gorm:"size:50" json:"category"`
	EquipmentID       *uint  `gorm:"index" json:"equipment_id"`
	EstimatedDuration int    `json:"estimated_duration"`
	SafetyNotes       string `gorm:"type:text" json:"safety_notes"`
	RequiredTools     string `gorm:"type:text" json:"required_tools"`
	IsActive          bool   `gorm:"not null" json:"is_active"`
	CreatedBy         uint   `json:"created_by"`

	ChecklistItems []SOPChecklistItem `gorm:"foreignKey:SOPID" json:"checklist_items,omitempty"`
}

// TableName 指定表名
func (SOP) TableName() string {
	return "sops"
}

// SOPChecklistItem SOP 检查项，按 SortOrder 排序
type SOPChecklistItem struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	SOPID       uint   `gorm:"column:sop_id;not null;index" json:"sop_id"`
	Description string `gorm:"type:text;not null" json:"description"`
	IsRequired  bool   `json:"is_required"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`
}

// TableName 指定表名
func (SOPChecklistItem) TableName() string {
	return "sop_checklist_items"
}
