package models

import (
	"time"
)

// 通知状态
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// NotificationTypeWhatsApp 通知渠道
const NotificationTypeWhatsApp = "whatsapp"

// NotificationLog 通知发送记录
type NotificationLog struct {
	BaseModel
	TenantModel

	Type                  string     `gorm:"size:20;not null" json:"type"`
	RecipientID           uint       `gorm:"not null;index" json:"recipient_id"`
	Recipient             string     `gorm:"size:30" json:"recipient"` // 发送时的号码
	Subject               string     `gorm:"size:200" json:"subject"`
	Content               string     `gorm:"type:text;not null" json:"content"`
	Status                string     `gorm:"size:20;default:'pending';index" json:"status"`
	ErrorMessage          string     `gorm:"type:text" json:"error_message"`
	ExternalID            string     `gorm:"size:100" json:"external_id"`
	WorkOrderID           *uint      `gorm:"index" json:"work_order_id"`
	MaintenanceScheduleID *uint      `gorm:"index" json:"maintenance_schedule_id"`
	SentAt                *time.Time `json:"sent_at"`
}

// TableName 指定表名
func (NotificationLog) TableName() string {
	return "notification_logs"
}

// WhatsAppUser 用户绑定的 WhatsApp 号码
type WhatsAppUser struct {
	BaseModel
	TenantModel

	UserID           uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	PhoneNumber      string     `gorm:"size:20;not null" json:"phone_number"`
	IsVerified       bool       `gorm:"default:false" json:"is_verified"`
	VerificationCode string     `gorm:"size:10" json:"-"`
	CodeExpiresAt    *time.Time `json:"-"`
	VerifiedAt       *time.Time `json:"verified_at"`
}

// TableName 指定表名
func (WhatsAppUser) TableName() string {
	return "whatsapp_users"
}
