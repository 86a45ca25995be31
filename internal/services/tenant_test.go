package services

import (
	"context"
	"testing"
	"time"

	"cmms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup_ProvisionsRolesAndAdmin(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")

	assert.Equal(t, "acme", tenant.Code)
	assert.Equal(t, models.TenantStatusActive, tenant.Status)

	var roles []models.Role
	require.NoError(t, db.Where("tenant_id = ?", tenant.ID).Find(&roles).Error)
	assert.Len(t, roles, 4)
	for _, r := range roles {
		assert.True(t, r.IsSystemRole, r.Name)
	}

	adminRole := roleByName(t, db, tenant.ID, models.RoleAdmin)
	require.NotNil(t, admin.RoleID)
	assert.Equal(t, adminRole.ID, *admin.RoleID)

	var user models.User
	require.NoError(t, db.First(&user, admin.UserID).Error)
	assert.Equal(t, models.RoleAdmin, user.RoleLabel)
	assert.True(t, user.CheckPassword("password123"))
}

func TestSignup_Conflicts(t *testing.T) {
	db := newTestDB(t)
	signup(t, db, "acme")
	svc := NewTenantService(db, nil)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, SignupInput{
		TenantName: "Another", TenantCode: "ACME",
		Username: "someone", Email: "someone@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrConflict)

	// 用户名冲突时租户也不能留下
	_, _, err = svc.Signup(ctx, SignupInput{
		TenantName: "Gamma", TenantCode: "gamma",
		Username: "acme-admin", Email: "new@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrConflict)
	var count int64
	require.NoError(t, db.Model(&models.Tenant{}).Where("code = ?", "gamma").Count(&count).Error)
	assert.Zero(t, count)

	_, _, err = svc.Signup(ctx, SignupInput{
		TenantName: "Bad", TenantCode: "has space",
		Username: "badone", Email: "bad@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTenant_GetAndRename(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	signup(t, db, "beta")
	svc := NewTenantService(db, nil)
	ctx := context.Background()

	got, err := svc.Get(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Code)

	renamed, err := svc.Rename(ctx, admin, "Acme Industrial")
	require.NoError(t, err)
	assert.Equal(t, "Acme Industrial", renamed.Name)

	_, err = svc.Rename(ctx, admin, "beta Inc")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.SetStatus(ctx, "acme", "frozen")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SetStatus(ctx, "nobody", models.TenantStatusInactive)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTenant_DeleteCascadesOnlyOwnData(t *testing.T) {
	db := newTestDB(t)
	acme, admin := signup(t, db, "acme")
	beta, betaAdmin := signup(t, db, "beta")
	c := newTestContainer(db, nil)
	ctx := context.Background()

	seed := func(tenantID uint, actor *Actor) {
		fx := newPMFixture(t, c, tenantID, actor)
		wo, err := c.WorkOrders.Create(ctx, actor, WorkOrderInput{Title: "Job", Checklist: []string{"step"}})
		require.NoError(t, err)
		_, err = c.WorkOrders.AddComment(ctx, actor, wo.ID, "note")
		require.NoError(t, err)
		next := time.Now().Add(time.Hour)
		_, err = c.Schedules.Create(ctx, actor, ScheduleInput{
			EquipmentID: fx.equipment.ID, Frequency: models.FrequencyDaily,
			Description: "Walk", NextDue: &next, SOPID: &fx.sop.ID, AssignedTeamID: &fx.team.ID,
		})
		require.NoError(t, err)
		_, err = c.Inventory.Create(ctx, actor, InventoryInput{PartNumber: "BRG-1", Name: "Bearing"})
		require.NoError(t, err)
		require.NoError(t, c.Lookups.Locations.Create(ctx, actor, &models.Location{Name: "Plant"}))
	}
	seed(acme.ID, admin)
	seed(beta.ID, betaAdmin)

	require.NoError(t, c.Tenants.Delete(ctx, admin))

	for _, m := range []interface{}{
		&models.User{}, &models.Role{}, &models.Equipment{}, &models.WorkOrder{},
		&models.MaintenanceSchedule{}, &models.Inventory{}, &models.Team{}, &models.SOP{}, &models.Location{},
	} {
		var gone, kept int64
		require.NoError(t, db.Model(m).Where("tenant_id = ?", acme.ID).Count(&gone).Error)
		require.NoError(t, db.Model(m).Where("tenant_id = ?", beta.ID).Count(&kept).Error)
		assert.Zero(t, gone, "%T", m)
		assert.NotZero(t, kept, "%T", m)
	}

	var orphanItems, members int64
	require.NoError(t, db.Model(&models.SOPChecklistItem{}).Count(&orphanItems).Error)
	assert.EqualValues(t, 2, orphanItems)
	require.NoError(t, db.Table("team_members").Count(&members).Error)
	assert.EqualValues(t, 2, members)

	_, err := c.Tenants.Get(ctx, admin)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = c.Users.LoadActor(ctx, betaAdmin.UserID, beta.ID)
	assert.NoError(t, err)
}
