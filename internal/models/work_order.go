package models

import (
	"time"
)

// 工单状态
const (
	WorkOrderOpen       = "open"
	WorkOrderInProgress = "in_progress"
	WorkOrderCompleted  = "completed"
	WorkOrderCancelled  = "cancelled"
)

// 工单优先级
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// 工单类型
const (
	WorkTypeCorrective = "corrective"
	WorkTypePreventive = "preventive"
	WorkTypeEmergency  = "emergency"
)

// WorkOrder 维修工单
type WorkOrder struct {
	BaseModel
	TenantModel

	WorkOrderNumber string `gorm:"size:30;not null;uniqueIndex" json:"work_order_number"` // WO-YYYYMMDD-XXXXXXXX
	Title           string `gorm:"size:200;not null" json:"title"`
	Description     string `gorm:"type:text" json:"description"`
	Priority        string `gorm:"size:20;default:'medium'" json:"priority"`
	Status          string `gorm:"size:20;default:'open';index" json:"status"`
	WorkType        string `gorm:"size:20;default:'corrective'" json:"work_type"`

	// 关联
	EquipmentID  *uint `gorm:"index" json:"equipment_id"`
	LocationID   *uint `gorm:"index" json:"location_id"`
	AssignedToID *uint `gorm:"index" json:"assigned_to_id"`
	TeamID       *uint `gorm:"index" json:"team_id"`
	CreatedByID  uint  `json:"created_by_id"`

	// 时间
	ScheduledDate     *time.Time `json:"scheduled_date"`
	DueDate           *time.Time `json:"due_date"`
	EstimatedDuration int        `json:"estimated_duration"` // 分钟
	ActualStartTime   *time.Time `json:"actual_start_time"`
	ActualEndTime     *time.Time `json:"actual_end_time"`
	ActualDuration    *int       `json:"actual_duration"` // 分钟

	CompletionNotes string `gorm:"type:text" json:"completion_notes"`

	Equipment  *Equipment           `gorm:"foreignKey:EquipmentID" json:"equipment,omitempty"`
	AssignedTo *User                `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	Team       *Team                `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Checklist  []WorkOrderChecklist `gorm:"foreignKey:WorkOrderID" json:"checklist,omitempty"`
	Comments   []WorkOrderComment   `gorm:"foreignKey:WorkOrderID" json:"comments,omitempty"`
}

// TableName 指定表名
func (WorkOrder) TableName() string {
	return "work_orders"
}

// WorkOrderChecklist 工单检查项
type WorkOrderChecklist struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	WorkOrderID uint       `gorm:"not null;index" json:"work_order_id"`
	Description string     `gorm:"type:text;not null" json:"description"`
	IsCompleted bool       `gorm:"default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CompletedBy *uint      `json:"completed_by"`
	Notes       string     `gorm:"type:text" json:"notes"`
	SortOrder   int        `gorm:"default:0" json:"sort_order"`
}

// TableName 指定表名
func (WorkOrderChecklist) TableName() string {
	return "work_order_checklists"
}

// WorkOrderComment 工单评论
type WorkOrderComment struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	WorkOrderID uint      `gorm:"not null;index" json:"work_order_id"`
	UserID      uint      `gorm:"not null" json:"user_id"`
	Comment     string    `gorm:"type:text;not null" json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (WorkOrderComment) TableName() string {
	return "work_order_comments"
}

// IsValidPriority 优先级是否合法
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// IsValidWorkType 工单类型是否合法
func IsValidWorkType(t string) bool {
	switch t {
	case WorkTypeCorrective, WorkTypePreventive, WorkTypeEmergency:
		return true
	}
	return false
}
