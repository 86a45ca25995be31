package services

import (
	"cmms/pkg/config"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Container 持有全部服务，供路由和后台任务共用
type Container struct {
	DB    *gorm.DB
	Redis *redis.Client

	RoleCache     *RoleCache
	Hub           *WorkOrderHub
	Permissions   *PermissionService
	Roles         *RoleService
	Tenants       *TenantService
	Users         *UserService
	Lookups       *LookupService
	Equipment     *EquipmentService
	Inventory     *InventoryService
	Teams         *TeamService
	SOPs          *SOPService
	WorkOrders    *WorkOrderService
	Schedules     *MaintenanceScheduleService
	Notifications *NotificationService
	Reports       *ReportService
	Reminders     *MaintenanceReminderScheduler
}

// NewContainer 组装服务。rdb 可以为 nil，此时不使用缓存，事件只在本进程内分发
func NewContainer(db *gorm.DB, rdb *redis.Client, sender Sender, cfg *config.Config) *Container {
	cache := NewRoleCache(rdb, cfg.Redis.Prefix, cfg.Redis.CacheTTL)
	hub := NewWorkOrderHub(rdb, cfg.Redis.Prefix)
	notifications := NewNotificationService(db, sender)

	return &Container{
		DB:            db,
		Redis:         rdb,
		RoleCache:     cache,
		Hub:           hub,
		Permissions:   NewPermissionService(db, cache),
		Roles:         NewRoleService(db, cache),
		Tenants:       NewTenantService(db, cache),
		Users:         NewUserService(db),
		Lookups:       NewLookupService(db),
		Equipment:     NewEquipmentService(db),
		Inventory:     NewInventoryService(db),
		Teams:         NewTeamService(db),
		SOPs:          NewSOPService(db),
		WorkOrders:    NewWorkOrderService(db, hub, notifications),
		Schedules:     NewMaintenanceScheduleService(db, hub),
		Notifications: notifications,
		Reports:       NewReportService(db),
		Reminders:     NewMaintenanceReminderScheduler(db, notifications, cfg.Scheduler.ReminderSpec, cfg.Scheduler.ReminderWindow),
	}
}
