package services

import (
	"context"
	"fmt"
	"testing"

	"cmms/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantScope_OnlyActorRows(t *testing.T) {
	db := newTestDB(t)
	for i, tenantID := range []uint{1, 2, 1, 3, 2, 1} {
		require.NoError(t, db.Create(&models.Location{
			TenantModel: models.TenantModel{TenantID: tenantID},
			Name:        fmt.Sprintf("loc-%d", i),
		}).Error)
	}

	for tenantID, want := range map[uint]int{1: 3, 2: 2, 3: 1, 4: 0} {
		var rows []models.Location
		require.NoError(t, db.Scopes(TenantScope(&Actor{TenantID: tenantID})).Find(&rows).Error)
		assert.Len(t, rows, want)
		for _, r := range rows {
			assert.Equal(t, tenantID, r.TenantID)
		}
	}
}

func TestTenantScope_NilActorReturnsNothing(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.Location{TenantModel: models.TenantModel{TenantID: 1}, Name: "a"}).Error)

	var count int64
	require.NoError(t, db.Model(&models.Location{}).Scopes(TenantScope(nil)).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTenantScope_QualifiesColumnOnJoin(t *testing.T) {
	db := newTestDB(t)
	acme, acmeAdmin := signup(t, db, "acme")
	signup(t, db, "beta")

	var users []models.User
	err := db.Joins("JOIN roles ON roles.id = users.role_id").
		Scopes(TenantScope(acmeAdmin)).Find(&users).Error
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, acme.ID, users[0].TenantID)
}

func TestAssertOwned(t *testing.T) {
	actor := &Actor{UserID: 5, TenantID: 1}
	own := &models.Equipment{TenantID: 1}
	other := &models.Equipment{TenantID: 77}

	assert.NoError(t, AssertOwned(own, actor))

	before := testutil.ToFloat64(crossTenantDenials.WithLabelValues("Equipment"))
	err := AssertOwned(other, actor)
	assert.ErrorIs(t, err, ErrCrossTenantAccess)
	assert.NotContains(t, err.Error(), "77")
	assert.Equal(t, before+1, testutil.ToFloat64(crossTenantDenials.WithLabelValues("Equipment")))

	assert.ErrorIs(t, AssertOwned(own, nil), ErrCrossTenantAccess)
}

func TestFindOwned_GuessedIDIsSecurityFault(t *testing.T) {
	db := newTestDB(t)
	_, acme := signup(t, db, "acme")
	_, beta := signup(t, db, "beta")

	loc := &models.Location{Name: "Plant"}
	require.NoError(t, NewLookupService(db).Locations.Create(context.Background(), acme, loc))

	_, err := findOwned[models.Location](db, beta, loc.ID)
	assert.ErrorIs(t, err, ErrCrossTenantAccess)

	_, err = findOwned[models.Location](db, beta, loc.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := findOwned[models.Location](db, acme, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plant", got.Name)
}
