package database

import (
	"testing"

	"cmms/internal/models"
	"cmms/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMigrate_SQLite(t *testing.T) {
	db, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, m := range []interface{}{
		&models.Tenant{}, &models.Role{}, &models.User{}, &models.WorkOrder{},
		&models.MaintenanceSchedule{}, &models.NotificationLog{},
	} {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasTable("team_members"))
	assert.True(t, db.Migrator().HasIndex(&models.Role{}, "idx_role_tenant_name"))

	// 同一租户内角色名唯一
	require.NoError(t, db.Create(&models.Role{TenantID: 1, Name: "x", DisplayName: "X"}).Error)
	assert.Error(t, db.Create(&models.Role{TenantID: 1, Name: "x", DisplayName: "X"}).Error)
	assert.NoError(t, db.Create(&models.Role{TenantID: 2, Name: "x", DisplayName: "X"}).Error)
}

func TestInitializeAndClose(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}}
	require.NoError(t, Initialize(cfg))
	assert.NotNil(t, GetDB())
	require.NoError(t, Close())
	assert.Nil(t, GetDB())
}
