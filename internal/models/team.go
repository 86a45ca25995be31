package models

// Team 维修班组
type Team struct {
	BaseModel
	TenantModel

	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	LeaderID    *uint  `json:"leader_id"`
	IsActive    bool   `gorm:"not null" json:"is_active"`

	Members []User `gorm:"many2many:team_members;" json:"members,omitempty"`
}

// TableName 指定表名
func (Team) TableName() string {
	return "teams"
}
