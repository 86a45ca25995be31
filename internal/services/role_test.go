package services

import (
	"context"
	"errors"
	"testing"

	"cmms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestProvisionDefaults_Idempotent(t *testing.T) {
	db := newTestDB(t)
	tenant, _ := signup(t, db, "acme")
	svc := NewRoleService(db, nil)
	ctx := context.Background()

	_, err := svc.ProvisionDefaults(ctx, tenant.ID)
	require.NoError(t, err)
	roles, err := svc.ProvisionDefaults(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, roles, 4)

	for _, name := range []string{models.RoleAdmin, models.RoleManager, models.RoleTechnician, models.RoleViewer} {
		var count int64
		require.NoError(t, db.Model(&models.Role{}).Where("tenant_id = ? AND name = ?", tenant.ID, name).Count(&count).Error)
		assert.EqualValues(t, 1, count, name)
	}
}

func TestDefaultRoles_Sets(t *testing.T) {
	sets := map[string][]string{}
	for _, r := range models.DefaultRoles() {
		sets[r.Name] = r.Permissions
	}

	// 管理员拥有全部权限，其余角色都是管理员的子集
	for _, p := range models.PermissionCatalog {
		assert.Contains(t, sets[models.RoleAdmin], p.Code)
	}
	for name, perms := range sets {
		assert.NotEmpty(t, perms, name)
		for _, p := range perms {
			assert.True(t, models.IsKnownPermission(p), "%s: %s", name, p)
		}
	}

	assert.NotContains(t, sets[models.RoleManager], models.PermEquipmentDelete)
	assert.Contains(t, sets[models.RoleManager], models.PermSOPManage)
	assert.Contains(t, sets[models.RoleTechnician], models.PermWorkOrderEdit)
	assert.NotContains(t, sets[models.RoleTechnician], models.PermWorkOrderCreate)
	assert.NotContains(t, sets[models.RoleViewer], models.PermWorkOrderEdit)
}

func TestCreateCustom(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	_, beta := signup(t, db, "beta")
	svc := NewRoleService(db, nil)
	ctx := context.Background()

	role, err := svc.CreateCustom(ctx, admin, RoleInput{
		Name:        "  Shift_Lead ",
		Permissions: []string{models.PermWorkOrderView, models.PermWorkOrderView, models.PermTeamView},
	})
	require.NoError(t, err)
	assert.Equal(t, "shift_lead", role.Name)
	assert.False(t, role.IsSystemRole)
	assert.Equal(t, []string{models.PermWorkOrderView, models.PermTeamView}, []string(role.Permissions))

	_, err = svc.CreateCustom(ctx, admin, RoleInput{Name: "SHIFT_LEAD"})
	assert.ErrorIs(t, err, ErrDuplicateRole)

	_, err = svc.CreateCustom(ctx, admin, RoleInput{Name: "technician"})
	assert.ErrorIs(t, err, ErrDuplicateRole)

	// 另一个租户可以用同名角色
	_, err = svc.CreateCustom(ctx, beta, RoleInput{Name: "shift_lead"})
	assert.NoError(t, err)

	_, err = svc.CreateCustom(ctx, admin, RoleInput{Name: "hacker", Permissions: []string{"root_shell"}})
	assert.ErrorIs(t, err, ErrUnknownPermission)

	_, err = svc.CreateCustom(ctx, admin, RoleInput{Name: "bad name!"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdate_SystemRoleImmutable(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")
	svc := NewRoleService(db, nil)

	desc := "changed"
	_, err := svc.Update(context.Background(), admin, roleByName(t, db, tenant.ID, models.RoleViewer).ID, RoleUpdate{Description: &desc})
	assert.ErrorIs(t, err, ErrImmutableRole)
}

func TestUpdate_RenameRewritesUserLabel(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")
	svc := NewRoleService(db, nil)
	ctx := context.Background()

	role, err := svc.CreateCustom(ctx, admin, RoleInput{Name: "planner"})
	require.NoError(t, err)
	u, _ := addUser(t, db, tenant.ID, role, "pat")

	name := "Scheduler"
	updated, err := svc.Update(ctx, admin, role.ID, RoleUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "scheduler", updated.Name)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, u.ID).Error)
	assert.Equal(t, "scheduler", reloaded.RoleLabel)

	taken := models.RoleManager
	_, err = svc.Update(ctx, admin, role.ID, RoleUpdate{Name: &taken})
	assert.ErrorIs(t, err, ErrDuplicateRole)
}

func TestDelete_WithoutUsers(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	svc := NewRoleService(db, nil)
	ctx := context.Background()

	role, err := svc.CreateCustom(ctx, admin, RoleInput{Name: "temp"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, admin, role.ID, nil))

	_, err = svc.GetByID(ctx, admin, role.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_ReassignmentRequired(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")
	svc := NewRoleService(db, nil)
	ctx := context.Background()

	role, err := svc.CreateCustom(ctx, admin, RoleInput{Name: "temp"})
	require.NoError(t, err)
	addUser(t, db, tenant.ID, role, "u1")

	assert.ErrorIs(t, svc.Delete(ctx, admin, role.ID, nil), ErrReassignmentRequired)

	count, err := svc.CountUsers(ctx, admin, role.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestDelete_ReassignsUsers(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")
	svc := NewRoleService(db, nil)
	ctx := context.Background()

	role, err := svc.CreateCustom(ctx, admin, RoleInput{Name: "temp"})
	require.NoError(t, err)
	u1, _ := addUser(t, db, tenant.ID, role, "u1")
	addUser(t, db, tenant.ID, role, "u2")
	viewer := roleByName(t, db, tenant.ID, models.RoleViewer)

	require.NoError(t, svc.Delete(ctx, admin, role.ID, &viewer.ID))

	var dangling int64
	require.NoError(t, db.Model(&models.User{}).Where("role_id = ?", role.ID).Count(&dangling).Error)
	assert.Zero(t, dangling)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, u1.ID).Error)
	assert.Equal(t, viewer.ID, *reloaded.RoleID)
	assert.Equal(t, models.RoleViewer, reloaded.RoleLabel)
}

func TestDelete_InvalidTargets(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")
	beta, _ := signup(t, db, "beta")
	svc := NewRoleService(db, nil)
	ctx := context.Background()

	role, err := svc.CreateCustom(ctx, admin, RoleInput{Name: "temp"})
	require.NoError(t, err)
	addUser(t, db, tenant.ID, role, "u1")

	assert.ErrorIs(t, svc.Delete(ctx, admin, role.ID, &role.ID), ErrInvalidReassignment)

	missing := uint(9999)
	assert.ErrorIs(t, svc.Delete(ctx, admin, role.ID, &missing), ErrInvalidReassignment)

	foreign := roleByName(t, db, beta.ID, models.RoleViewer)
	assert.ErrorIs(t, svc.Delete(ctx, admin, role.ID, &foreign.ID), ErrCrossTenantAccess)

	assert.ErrorIs(t, svc.Delete(ctx, admin, roleByName(t, db, tenant.ID, models.RoleViewer).ID, nil), ErrImmutableRole)
}

func TestDelete_RollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")
	svc := NewRoleService(db, nil)
	ctx := context.Background()

	role, err := svc.CreateCustom(ctx, admin, RoleInput{Name: "temp"})
	require.NoError(t, err)
	u, _ := addUser(t, db, tenant.ID, role, "u1")
	viewer := roleByName(t, db, tenant.ID, models.RoleViewer)

	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:fail_role_delete", func(tx *gorm.DB) {
		if tx.Statement.Table == "roles" {
			tx.AddError(errors.New("disk full"))
		}
	}))
	defer db.Callback().Delete().Remove("test:fail_role_delete")

	assert.Error(t, svc.Delete(ctx, admin, role.ID, &viewer.ID))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, u.ID).Error)
	assert.Equal(t, role.ID, *reloaded.RoleID)
	assert.Equal(t, "temp", reloaded.RoleLabel)
}

func TestRoleList_TenantScoped(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	signup(t, db, "beta")
	svc := NewRoleService(db, nil)
	ctx := context.Background()

	_, err := svc.CreateCustom(ctx, admin, RoleInput{Name: "extra"})
	require.NoError(t, err)

	roles, total, err := svc.List(ctx, admin, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	for _, r := range roles {
		assert.Equal(t, admin.TenantID, r.TenantID)
	}

	inactive := false
	_, total, err = svc.List(ctx, admin, &inactive, nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}
