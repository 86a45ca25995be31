package services

import (
	"context"
	"testing"
	"time"

	"cmms/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestHasPermission_AdminBypass(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	svc := NewPermissionService(db, nil)
	ctx := context.Background()

	for _, p := range models.PermissionCatalog {
		assert.True(t, svc.HasPermission(ctx, admin, p.Code), p.Code)
	}
	assert.True(t, svc.HasPermission(ctx, admin, "not_in_any_set"))
}

func TestHasPermission_MembershipFailClosed(t *testing.T) {
	db := newTestDB(t)
	tenant, _ := signup(t, db, "acme")
	svc := NewPermissionService(db, nil)
	ctx := context.Background()

	_, tech := addUser(t, db, tenant.ID, roleByName(t, db, tenant.ID, models.RoleTechnician), "tech")
	_, viewer := addUser(t, db, tenant.ID, roleByName(t, db, tenant.ID, models.RoleViewer), "viewer")

	assert.True(t, svc.HasPermission(ctx, tech, models.PermWorkOrderEdit))
	assert.True(t, svc.HasPermission(ctx, tech, models.PermInventoryView))
	assert.False(t, svc.HasPermission(ctx, tech, models.PermUserDelete))
	assert.False(t, svc.HasPermission(ctx, tech, "not_in_any_set"))

	assert.True(t, svc.HasPermission(ctx, viewer, models.PermEquipmentView))
	assert.False(t, svc.HasPermission(ctx, viewer, models.PermWorkOrderEdit))
}

func TestHasPermission_MissingRoleDenied(t *testing.T) {
	db := newTestDB(t)
	tenant, _ := signup(t, db, "acme")
	svc := NewPermissionService(db, nil)
	ctx := context.Background()

	_, noRole := addUser(t, db, tenant.ID, nil, "norole")
	assert.False(t, svc.HasPermission(ctx, noRole, models.PermEquipmentView))
	assert.False(t, svc.HasPermission(ctx, nil, models.PermEquipmentView))

	ghost := uint(9999)
	assert.False(t, svc.HasPermission(ctx, &Actor{UserID: 1, TenantID: tenant.ID, RoleID: &ghost}, models.PermEquipmentView))
}

func TestHasPermission_IgnoresLegacyLabel(t *testing.T) {
	db := newTestDB(t)
	tenant, _ := signup(t, db, "acme")
	svc := NewPermissionService(db, nil)

	u, actor := addUser(t, db, tenant.ID, roleByName(t, db, tenant.ID, models.RoleViewer), "drift")
	require.NoError(t, db.Model(u).Update("role", models.RoleAdmin).Error)

	assert.False(t, svc.HasPermission(context.Background(), actor, models.PermUserDelete))
}

func TestHasPermission_RoleFromOtherTenantDenied(t *testing.T) {
	db := newTestDB(t)
	acme, _ := signup(t, db, "acme")
	beta, _ := signup(t, db, "beta")
	svc := NewPermissionService(db, nil)

	acmeAdminRole := roleByName(t, db, acme.ID, models.RoleAdmin)
	forged := &Actor{UserID: 1, TenantID: beta.ID, RoleID: &acmeAdminRole.ID}
	assert.False(t, svc.HasPermission(context.Background(), forged, models.PermEquipmentView))
}

func TestHasPermission_InactiveCustomRoleDenied(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")
	roles := NewRoleService(db, nil)
	svc := NewPermissionService(db, nil)
	ctx := context.Background()

	role, err := roles.CreateCustom(ctx, admin, RoleInput{Name: "auditor", Permissions: []string{models.PermReportsAccess}})
	require.NoError(t, err)
	_, auditor := addUser(t, db, tenant.ID, role, "auditor")
	assert.True(t, svc.HasPermission(ctx, auditor, models.PermReportsAccess))

	inactive := false
	_, err = roles.Update(ctx, admin, role.ID, RoleUpdate{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, svc.HasPermission(ctx, auditor, models.PermReportsAccess))
}

func TestHasPermission_CacheInvalidatedOnRoleUpdate(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cache := NewRoleCache(rdb, "test", time.Minute)

	roles := NewRoleService(db, cache)
	svc := NewPermissionService(db, cache)

	role, err := roles.CreateCustom(ctx, admin, RoleInput{Name: "planner", Permissions: []string{models.PermWorkOrderCreate}})
	require.NoError(t, err)
	_, planner := addUser(t, db, tenant.ID, role, "planner")

	assert.True(t, svc.HasPermission(ctx, planner, models.PermWorkOrderCreate))
	assert.True(t, mr.Exists(cache.key(role.ID)))

	perms := []string{models.PermWorkOrderView}
	_, err = roles.Update(ctx, admin, role.ID, RoleUpdate{Permissions: &perms})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.key(role.ID)))

	assert.False(t, svc.HasPermission(ctx, planner, models.PermWorkOrderCreate))
	assert.True(t, svc.HasPermission(ctx, planner, models.PermWorkOrderView))
}

func TestHasPermission_UpdateDuringLoadDoesNotCacheStaleRole(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cache := NewRoleCache(rdb, "test", time.Minute)

	roles := NewRoleService(db, cache)
	svc := NewPermissionService(db, cache)

	role, err := roles.CreateCustom(ctx, admin, RoleInput{Name: "planner", Permissions: []string{models.PermWorkOrderCreate, models.PermUserDelete}})
	require.NoError(t, err)
	_, planner := addUser(t, db, tenant.ID, role, "planner")
	cache.Invalidate(ctx, role.ID)

	// 权限检查读完角色行之后、写缓存之前，角色被收回权限
	revoked := false
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:revoke_role", func(tx *gorm.DB) {
		if revoked || tx.Statement.Table != "roles" {
			return
		}
		revoked = true
		perms := []string{models.PermEquipmentView}
		_, err := roles.Update(ctx, admin, role.ID, RoleUpdate{Permissions: &perms})
		require.NoError(t, err)
	}))

	assert.True(t, svc.HasPermission(ctx, planner, models.PermUserDelete))
	require.True(t, revoked)
	assert.False(t, mr.Exists(cache.key(role.ID)))

	assert.False(t, svc.HasPermission(ctx, planner, models.PermUserDelete))
	assert.True(t, svc.HasPermission(ctx, planner, models.PermEquipmentView))
	assert.True(t, mr.Exists(cache.key(role.ID)))
}

func TestRoleCache_InvalidateBumpsGeneration(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cache := NewRoleCache(rdb, "test", time.Minute)
	ctx := context.Background()

	gen, ok := cache.generation(ctx, 7)
	require.True(t, ok)
	assert.Zero(t, gen)

	snap := &roleSnapshot{ID: 7, TenantID: 1, Name: "planner", IsActive: true}
	cache.Invalidate(ctx, 7)
	cache.set(ctx, snap, gen)
	assert.False(t, mr.Exists(cache.key(7)))

	gen, _ = cache.generation(ctx, 7)
	assert.Equal(t, int64(1), gen)
	cache.set(ctx, snap, gen)
	cached, ok := cache.get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, "planner", cached.Name)
}

func TestHasPermission_CacheDownFallsBackToDatabase(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	svc := NewPermissionService(db, NewRoleCache(rdb, "test", time.Minute))
	assert.True(t, svc.HasPermission(context.Background(), admin, models.PermRoleManage))
}

func TestActorPermissions(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")
	svc := NewPermissionService(db, nil)
	ctx := context.Background()

	all, err := svc.ActorPermissions(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, len(models.PermissionCatalog))

	_, viewer := addUser(t, db, tenant.ID, roleByName(t, db, tenant.ID, models.RoleViewer), "viewer")
	perms, err := svc.ActorPermissions(ctx, viewer)
	require.NoError(t, err)
	assert.NotContains(t, perms, models.PermWorkOrderEdit)
	assert.Contains(t, perms, models.PermEquipmentView)
}
