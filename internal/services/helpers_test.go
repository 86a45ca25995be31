package services

import (
	"context"
	"testing"
	"time"

	"cmms/internal/database"
	"cmms/internal/models"
	"cmms/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// signup 创建租户，返回其管理员作为操作者
func signup(t *testing.T, db *gorm.DB, code string) (*models.Tenant, *Actor) {
	t.Helper()
	tenant, admin, err := NewTenantService(db, nil).Signup(context.Background(), SignupInput{
		TenantName: code + " Inc",
		TenantCode: code,
		Username:   code + "-admin",
		Email:      code + "-admin@example.com",
		Password:   "password123",
		FirstName:  "Admin",
	})
	require.NoError(t, err)
	return tenant, actorOf(admin)
}

func actorOf(u *models.User) *Actor {
	return &Actor{UserID: u.ID, TenantID: u.TenantID, RoleID: u.RoleID, Username: u.Username}
}

func roleByName(t *testing.T, db *gorm.DB, tenantID uint, name string) *models.Role {
	t.Helper()
	var role models.Role
	require.NoError(t, db.Where("tenant_id = ? AND name = ?", tenantID, name).First(&role).Error)
	return &role
}

// addUser 直接写库创建用户，避免每次走 bcrypt 默认强度
func addUser(t *testing.T, db *gorm.DB, tenantID uint, role *models.Role, username string) (*models.User, *Actor) {
	t.Helper()
	u := &models.User{
		TenantModel: models.TenantModel{TenantID: tenantID},
		Username:    username,
		Email:       username + "@example.com",
		FirstName:   username,
		IsActive:    true,
	}
	if role != nil {
		u.BindRole(role)
	}
	require.NoError(t, db.Create(u).Error)
	return u, actorOf(u)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeSender struct {
	sent []string
	to   []string
	err  error
}

func (f *fakeSender) SendText(_ context.Context, to, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.to = append(f.to, to)
	f.sent = append(f.sent, body)
	return "wamid." + uuid.NewString()[:8], nil
}

// verifyPhone 直接写入已验证号码
func verifyPhone(t *testing.T, db *gorm.DB, u *models.User, phone string) {
	t.Helper()
	require.NoError(t, db.Create(&models.WhatsAppUser{
		TenantModel: models.TenantModel{TenantID: u.TenantID},
		UserID:      u.ID,
		PhoneNumber: phone,
		IsVerified:  true,
	}).Error)
}

func newTestContainer(db *gorm.DB, sender Sender) *Container {
	cfg := &config.Config{}
	cfg.Redis.Prefix = "test"
	cfg.Redis.CacheTTL = time.Minute
	cfg.Scheduler.ReminderSpec = "@every 1h"
	cfg.Scheduler.ReminderWindow = 24 * time.Hour
	return NewContainer(db, nil, sender, cfg)
}
