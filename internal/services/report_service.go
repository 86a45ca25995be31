package services

import (
	"cmms/internal/models"
	"context"
	"time"

	"gorm.io/gorm"
)

// DashboardStats 租户概览
type DashboardStats struct {
	EquipmentByStatus   map[string]int64 `json:"equipment_by_status"`
	WorkOrdersByStatus  map[string]int64 `json:"work_orders_by_status"`
	OpenHighPriority    int64            `json:"open_high_priority"`
	OverdueWorkOrders   int64            `json:"overdue_work_orders"`
	Users               int64            `json:"users"`
	ActiveUsers         int64            `json:"active_users"`
	LowStockItems       int64            `json:"low_stock_items"`
	UpcomingMaintenance int64            `json:"upcoming_maintenance"`
}

type statusCount struct {
	Status string
	Count  int64
}

type ReportService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db, now: time.Now}
}

// DashboardStats 统计操作者租户的数据
func (s *ReportService) DashboardStats(ctx context.Context, actor *Actor) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	now := s.now()
	stats := &DashboardStats{}

	var err error
	if stats.EquipmentByStatus, err = groupByStatus(db, actor, &models.Equipment{}); err != nil {
		return nil, err
	}
	if stats.WorkOrdersByStatus, err = groupByStatus(db, actor, &models.WorkOrder{}); err != nil {
		return nil, err
	}

	open := []string{models.WorkOrderOpen, models.WorkOrderInProgress}
	counts := []struct {
		dest  *int64
		model interface{}
		where func(*gorm.DB) *gorm.DB
	}{
		{&stats.OpenHighPriority, &models.WorkOrder{}, func(q *gorm.DB) *gorm.DB {
			return q.Where("status IN ? AND priority IN ?", open, []string{models.PriorityHigh, models.PriorityUrgent})
		}},
		{&stats.OverdueWorkOrders, &models.WorkOrder{}, func(q *gorm.DB) *gorm.DB {
			return q.Where("status IN ? AND due_date IS NOT NULL AND due_date < ?", open, now)
		}},
		{&stats.Users, &models.User{}, func(q *gorm.DB) *gorm.DB { return q }},
		{&stats.ActiveUsers, &models.User{}, func(q *gorm.DB) *gorm.DB {
			return q.Where("is_active = ?", true)
		}},
		{&stats.LowStockItems, &models.Inventory{}, func(q *gorm.DB) *gorm.DB {
			return q.Where("current_stock <= minimum_stock")
		}},
		{&stats.UpcomingMaintenance, &models.MaintenanceSchedule{}, func(q *gorm.DB) *gorm.DB {
			return q.Where("is_active = ? AND next_due IS NOT NULL AND next_due <= ?", true, now.Add(7*day))
		}},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Scopes(TenantScope(actor), c.where).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func groupByStatus(db *gorm.DB, actor *Actor, model interface{}) (map[string]int64, error) {
	var rows []statusCount
	err := db.Model(model).Scopes(TenantScope(actor)).
		Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.Status] = r.Count
	}
	return result, nil
}
