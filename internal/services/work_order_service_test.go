package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"cmms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWorkOrderNumber(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	a := GenerateWorkOrderNumber(now)
	b := GenerateWorkOrderNumber(now)

	assert.Regexp(t, regexp.MustCompile(`^WO-20240315-[0-9A-F]{8}$`), a)
	assert.NotEqual(t, a, b)
}

func TestWorkOrder_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	hub := NewWorkOrderHub(nil, "test")
	events, cancel := hub.Subscribe(admin.TenantID)
	defer cancel()

	svc := NewWorkOrderService(db, hub, nil)
	ctx := context.Background()

	eq, err := NewEquipmentService(db).Create(ctx, admin, EquipmentInput{Name: "Pump 1", AssetTag: "P-1"})
	require.NoError(t, err)

	wo, err := svc.Create(ctx, admin, WorkOrderInput{
		Title:       "  Replace seal ",
		EquipmentID: &eq.ID,
		Checklist:   []string{"Isolate pump", "", "Replace seal"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Replace seal", wo.Title)
	assert.Equal(t, models.WorkOrderOpen, wo.Status)
	assert.Equal(t, models.PriorityMedium, wo.Priority)
	assert.Equal(t, models.WorkTypeCorrective, wo.WorkType)
	assert.Equal(t, admin.UserID, wo.CreatedByID)

	select {
	case ev := <-events:
		assert.Equal(t, EventWorkOrderCreated, ev.Type)
		assert.Equal(t, wo.ID, ev.WorkOrderID)
	default:
		t.Fatal("expected created event")
	}

	got, err := svc.GetByID(ctx, admin, wo.ID)
	require.NoError(t, err)
	require.Len(t, got.Checklist, 2)
	assert.Equal(t, "Isolate pump", got.Checklist[0].Description)
	require.NotNil(t, got.Equipment)
	assert.Equal(t, "Pump 1", got.Equipment.Name)
}

func TestWorkOrder_CreateValidation(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	_, beta := signup(t, db, "beta")
	svc := NewWorkOrderService(db, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, WorkOrderInput{Title: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, admin, WorkOrderInput{Title: "x", Priority: "whenever"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	missing := uint(9999)
	_, err = svc.Create(ctx, admin, WorkOrderInput{Title: "x", EquipmentID: &missing})
	assert.ErrorIs(t, err, ErrInvalidInput)

	betaEq, err := NewEquipmentService(db).Create(ctx, beta, EquipmentInput{Name: "Beta pump", AssetTag: "B-1"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, WorkOrderInput{Title: "x", EquipmentID: &betaEq.ID})
	assert.ErrorIs(t, err, ErrCrossTenantAccess)
}

func TestWorkOrder_CrossTenantAccess(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	_, beta := signup(t, db, "beta")
	svc := NewWorkOrderService(db, nil, nil)
	ctx := context.Background()

	wo, err := svc.Create(ctx, admin, WorkOrderInput{Title: "Acme only"})
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, beta, wo.ID)
	assert.ErrorIs(t, err, ErrCrossTenantAccess)
	_, err = svc.UpdateStatus(ctx, beta, wo.ID, models.WorkOrderCancelled, "")
	assert.ErrorIs(t, err, ErrCrossTenantAccess)
	assert.ErrorIs(t, svc.Delete(ctx, beta, wo.ID), ErrCrossTenantAccess)

	_, err = svc.GetByID(ctx, admin, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	items, total, err := svc.List(ctx, beta, WorkOrderFilter{}, nil)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestWorkOrder_UpdateStatus(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	hub := NewWorkOrderHub(nil, "test")
	svc := NewWorkOrderService(db, hub, nil)
	ctx := context.Background()

	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	wo, err := svc.Create(ctx, admin, WorkOrderInput{Title: "Fix belt"})
	require.NoError(t, err)

	events, cancel := hub.Subscribe(admin.TenantID)
	defer cancel()

	_, err = svc.UpdateStatus(ctx, admin, wo.ID, models.WorkOrderInProgress, "")
	require.NoError(t, err)

	// 重复开始不产生事件
	_, err = svc.UpdateStatus(ctx, admin, wo.ID, models.WorkOrderInProgress, "")
	require.NoError(t, err)

	clock = clock.Add(47 * time.Minute)
	done, err := svc.UpdateStatus(ctx, admin, wo.ID, models.WorkOrderCompleted, "belt replaced")
	require.NoError(t, err)
	require.NotNil(t, done.ActualDuration)
	assert.Equal(t, 47, *done.ActualDuration)

	reloaded, err := svc.GetByID(ctx, admin, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderCompleted, reloaded.Status)
	assert.Equal(t, "belt replaced", reloaded.CompletionNotes)
	assert.Equal(t, 47, *reloaded.ActualDuration)

	require.Len(t, events, 2)
	first := <-events
	assert.Equal(t, EventWorkOrderStatusChanged, first.Type)
	assert.Equal(t, models.WorkOrderOpen, first.FromStatus)
	second := <-events
	assert.Equal(t, models.WorkOrderCompleted, second.Status)

	_, err = svc.UpdateStatus(ctx, admin, wo.ID, models.WorkOrderOpen, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.UpdateStatus(ctx, admin, wo.ID, "archived", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestWorkOrder_AssignNotifiesTechnician(t *testing.T) {
	db := newTestDB(t)
	tenant, admin := signup(t, db, "acme")
	betaTenant, _ := signup(t, db, "beta")
	sender := &fakeSender{}
	svc := NewWorkOrderService(db, nil, NewNotificationService(db, sender))
	ctx := context.Background()

	tech, _ := addUser(t, db, tenant.ID, roleByName(t, db, tenant.ID, models.RoleTechnician), "tech")
	verifyPhone(t, db, tech, "15551234567")
	outsider, _ := addUser(t, db, betaTenant.ID, roleByName(t, db, betaTenant.ID, models.RoleTechnician), "outsider")

	wo, err := svc.Create(ctx, admin, WorkOrderInput{Title: "Inspect boiler", Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.Empty(t, sender.sent)

	_, err = svc.Assign(ctx, admin, wo.ID, &outsider.ID, nil)
	assert.ErrorIs(t, err, ErrCrossTenantAccess)

	assigned, err := svc.Assign(ctx, admin, wo.ID, &tech.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, *assigned.AssignedToID)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"15551234567"}, sender.to)
	assert.Contains(t, sender.sent[0], "Inspect boiler")

	var log models.NotificationLog
	require.NoError(t, db.Where("work_order_id = ?", wo.ID).First(&log).Error)
	assert.Equal(t, models.NotificationSent, log.Status)
	assert.Equal(t, tenant.ID, log.TenantID)
}

func TestWorkOrder_CommentsAndChecklist(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	svc := NewWorkOrderService(db, nil, nil)
	ctx := context.Background()

	wo, err := svc.Create(ctx, admin, WorkOrderInput{Title: "Lube", Checklist: []string{"Grease bearings"}})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, admin, wo.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.AddComment(ctx, admin, wo.ID, "started")
	require.NoError(t, err)

	item, err := svc.UpdateChecklistItem(ctx, admin, wo.ID, wo.Checklist[0].ID, true, "ok")
	require.NoError(t, err)
	assert.True(t, item.IsCompleted)
	assert.Equal(t, admin.UserID, *item.CompletedBy)

	_, err = svc.UpdateChecklistItem(ctx, admin, wo.ID, 9999, true, "")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.GetByID(ctx, admin, wo.ID)
	require.NoError(t, err)
	assert.Len(t, got.Comments, 1)
	assert.True(t, got.Checklist[0].IsCompleted)

	require.NoError(t, svc.Delete(ctx, admin, wo.ID))
	var count int64
	require.NoError(t, db.Model(&models.WorkOrderChecklist{}).Where("work_order_id = ?", wo.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWorkOrder_ChecklistLookupSurfacesDBErrors(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	svc := NewWorkOrderService(db, nil, nil)
	ctx := context.Background()

	wo, err := svc.Create(ctx, admin, WorkOrderInput{Title: "Lube", Checklist: []string{"Grease bearings"}})
	require.NoError(t, err)

	// 表丢失属于存储故障，不能当成找不到
	require.NoError(t, db.Migrator().DropTable(&models.WorkOrderChecklist{}))
	_, err = svc.UpdateChecklistItem(ctx, admin, wo.ID, wo.Checklist[0].ID, true, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestWorkOrder_ListFilters(t *testing.T) {
	db := newTestDB(t)
	_, admin := signup(t, db, "acme")
	svc := NewWorkOrderService(db, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, WorkOrderInput{Title: "Pump noise", Priority: models.PriorityHigh})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, WorkOrderInput{Title: "Paint rail", Priority: models.PriorityLow})
	require.NoError(t, err)

	_, total, err := svc.List(ctx, admin, WorkOrderFilter{Priority: models.PriorityHigh}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	items, total, err := svc.List(ctx, admin, WorkOrderFilter{Search: "Paint"}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Paint rail", items[0].Title)
}
