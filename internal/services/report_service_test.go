package services

import (
	"context"
	"testing"
	"time"

	"cmms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardStats(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	_, beta := signup(t, db, "beta")
	c := newTestContainer(db, nil)
	ctx := context.Background()

	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	c.Reports.now = fixedClock(now)

	eq, err := c.Equipment.Create(ctx, admin, EquipmentInput{Name: "Press", AssetTag: "PR-1"})
	require.NoError(t, err)
	_, err = c.Equipment.Create(ctx, admin, EquipmentInput{Name: "Lathe", AssetTag: "LA-1", Status: models.EquipmentOffline})
	require.NoError(t, err)
	_, err = c.Equipment.Create(ctx, beta, EquipmentInput{Name: "Beta press", AssetTag: "PR-1"})
	require.NoError(t, err)

	overdue := now.Add(-24 * time.Hour)
	_, err = c.WorkOrders.Create(ctx, admin, WorkOrderInput{Title: "Urgent leak", Priority: models.PriorityUrgent, DueDate: &overdue})
	require.NoError(t, err)
	done, err := c.WorkOrders.Create(ctx, admin, WorkOrderInput{Title: "Done", Priority: models.PriorityHigh})
	require.NoError(t, err)
	_, err = c.WorkOrders.UpdateStatus(ctx, admin, done.ID, models.WorkOrderCompleted, "")
	require.NoError(t, err)

	_, err = c.Inventory.Create(ctx, admin, InventoryInput{PartNumber: "P-1", Name: "Gasket", CurrentStock: 1, MinimumStock: 2})
	require.NoError(t, err)

	soon := now.Add(3 * 24 * time.Hour)
	_, err = c.Schedules.Create(ctx, admin, ScheduleInput{EquipmentID: eq.ID, Frequency: models.FrequencyMonthly, Description: "PM", NextDue: &soon})
	require.NoError(t, err)

	stats, err := c.Reports.DashboardStats(ctx, admin)
	require.NoError(t, err)

	assert.EqualValues(t, 1, stats.EquipmentByStatus[models.EquipmentOperational])
	assert.EqualValues(t, 1, stats.EquipmentByStatus[models.EquipmentOffline])
	assert.EqualValues(t, 1, stats.WorkOrdersByStatus[models.WorkOrderOpen])
	assert.EqualValues(t, 1, stats.WorkOrdersByStatus[models.WorkOrderCompleted])
	assert.EqualValues(t, 1, stats.OpenHighPriority)
	assert.EqualValues(t, 1, stats.OverdueWorkOrders)
	assert.EqualValues(t, 1, stats.Users)
	assert.EqualValues(t, 1, stats.ActiveUsers)
	assert.EqualValues(t, 1, stats.LowStockItems)
	assert.EqualValues(t, 1, stats.UpcomingMaintenance)
}
