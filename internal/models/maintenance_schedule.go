package models

import (
	"time"
)

// 保养频率
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

// MaintenanceSchedule 预防性保养计划
type MaintenanceSchedule struct {
	BaseModel
	TenantModel

	EquipmentID       uint   `gorm:"not null;index" json:"equipment_id"`
	Frequency         string `gorm:"size:20;not null" json:"frequency"` // daily/weekly/monthly/yearly
	FrequencyValue    int    `gorm:"default:1" json:"frequency_value"`
	Description       string `gorm:"type:text;not null" json:"description"`
	EstimatedDuration int    `json:"estimated_duration"` // 分钟
	IsActive          bool   `gorm:"not null;index" json:"is_active"`

	LastPerformed *time.Time `json:"last_performed"`
	NextDue       *time.Time `gorm:"index" json:"next_due"`
	RemindedFor   *time.Time `json:"reminded_for"` // 已提醒的 next_due，防止重复提醒

	SOPID          *uint `gorm:"column:sop_id;index" json:"sop_id"`
	AssignedTeamID *uint `gorm:"index" json:"assigned_team_id"`

	Equipment    *Equipment `gorm:"foreignKey:EquipmentID" json:"equipment,omitempty"`
	SOP          *SOP       `gorm:"foreignKey:SOPID" json:"sop,omitempty"`
	AssignedTeam *Team      `gorm:"foreignKey:AssignedTeamID" json:"assigned_team,omitempty"`
}

// TableName 指定表名
func (MaintenanceSchedule) TableName() string {
	return "maintenance_schedules"
}
