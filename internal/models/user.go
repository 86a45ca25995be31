package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User 用户模型
type User struct {
	BaseModel
	TenantModel
	Username              string     `json:"username" gorm:"uniqueIndex;not null;size:80"`
	Email                 string     `json:"email" gorm:"uniqueIndex;not null;size:120"`
	PasswordHash          string     `json:"-" gorm:"not null;size:255"`
	FirstName             string     `json:"first_name" gorm:"not null;size:50"`
	LastName              string     `json:"last_name" gorm:"not null;size:50"`
	Phone                 string     `json:"phone" gorm:"size:20"`
	Department            string     `json:"department" gorm:"size:50"`
	RoleID                *uint      `json:"role_id" gorm:"index"`
	RoleLabel             string     `json:"role" gorm:"column:role;size:50"` // 冗余的角色名，只随 RoleID 写入，鉴权不读取
	IsActive              bool       `json:"is_active" gorm:"not null"`
	PasswordResetRequired bool       `json:"password_reset_required" gorm:"default:false"`
	LastLoginAt           *time.Time `json:"last_login_at"`

	Role *Role `json:"role_info,omitempty" gorm:"foreignKey:RoleID"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// SetPassword 设置密码
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// FullName 姓名
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// BindRole 同时写入 RoleID 和冗余角色名
func (u *User) BindRole(role *Role) {
	id := role.ID
	u.RoleID = &id
	u.RoleLabel = role.Name
}
