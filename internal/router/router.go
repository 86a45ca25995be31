package router

import (
	"cmms/internal/database"
	"cmms/internal/handlers"
	"cmms/internal/middleware"
	"cmms/internal/models"
	"cmms/internal/services"
	"cmms/pkg/config"
	"cmms/pkg/jwt"
	"cmms/pkg/logger"
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 设置路由
func SetupRouter(c *services.Container, cfg *config.Config, jwtManager *jwt.Manager) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS(cfg.CORS))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerRoutes(router, c, cfg, jwtManager)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, c *services.Container, cfg *config.Config, jwtManager *jwt.Manager) {
	auth := middleware.NewAuthMiddleware(c.Users, c.Permissions, jwtManager)

	var sqlDB *sql.DB
	if c.DB != nil {
		db, err := c.DB.DB()
		if err != nil {
			logger.GetLogger().Warnf("Health check without database handle: %v", err)
		}
		sqlDB = db
	}
	healthHandler := handlers.NewHealthHandler(database.NewHealthChecker(sqlDB, c.Redis))

	wsHandler := handlers.NewWebSocketHandler(c.Users, c.Permissions, c.Hub, jwtManager, cfg.CORS.AllowOrigins)
	router.GET("/ws/work-orders", wsHandler.WorkOrderEvents)

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthHandler.Health)
		api.GET("/ping", healthHandler.Ping)

		// 认证（登录、注册无需认证）
		authHandler := handlers.NewAuthHandler(c.Users, c.Tenants, c.Permissions, jwtManager)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/signup", authHandler.Signup)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/me", auth.RequireLogin(), authHandler.Me)
			authGroup.POST("/change-password", auth.RequireLogin(), authHandler.ChangePassword)
		}

		// 当前租户
		tenantHandler := handlers.NewTenantHandler(c.Tenants)
		tenant := api.Group("/tenant")
		{
			tenant.GET("", auth.RequireLogin(), tenantHandler.Get)
			tenant.PUT("", auth.RequireLogin(), auth.RequirePermission(models.PermSystemSettings), tenantHandler.Update)
			tenant.DELETE("", auth.RequireLogin(), auth.RequirePermission(models.PermSystemSettings), tenantHandler.Delete)
		}

		// 权限目录
		permissionHandler := handlers.NewPermissionHandler(c.Permissions)
		api.GET("/permissions", auth.RequireLogin(), permissionHandler.Catalog)

		// 角色
		roleHandler := handlers.NewRoleHandler(c.Roles)
		roles := api.Group("/roles", auth.CombineMiddleware(models.PermRoleManage)...)
		{
			roles.POST("", roleHandler.Create)
			roles.GET("", roleHandler.List)
			roles.GET("/:id", roleHandler.GetByID)
			roles.PUT("/:id", roleHandler.Update)
			roles.DELETE("/:id", roleHandler.Delete)
			roles.GET("/:id/user-count", roleHandler.UserCount)
		}

		// 用户
		userHandler := handlers.NewUserHandler(c.Users)
		users := api.Group("/users", auth.RequireLogin())
		{
			users.POST("", auth.RequirePermission(models.PermUserCreate), userHandler.Create)
			users.GET("", auth.RequirePermission(models.PermUserView), userHandler.List)
			users.GET("/:id", auth.RequirePermission(models.PermUserView), userHandler.GetByID)
			users.PUT("/:id", auth.RequirePermission(models.PermUserEdit), userHandler.Update)
			users.DELETE("/:id", auth.RequirePermission(models.PermUserDelete), userHandler.Delete)
			users.PUT("/:id/role", auth.RequirePermission(models.PermUserEdit), userHandler.ChangeRole)
			users.PUT("/:id/active", auth.RequirePermission(models.PermUserEdit), userHandler.SetActive)
			users.POST("/:id/reset-password", auth.RequirePermission(models.PermUserEdit), userHandler.ResetPassword)
		}

		// 设备
		equipmentHandler := handlers.NewEquipmentHandler(c.Equipment)
		equipment := api.Group("/equipment", auth.RequireLogin())
		{
			equipment.POST("", auth.RequirePermission(models.PermEquipmentCreate), equipmentHandler.Create)
			equipment.GET("", auth.RequirePermission(models.PermEquipmentView), equipmentHandler.List)
			equipment.GET("/:id", auth.RequirePermission(models.PermEquipmentView), equipmentHandler.GetByID)
			equipment.PUT("/:id", auth.RequirePermission(models.PermEquipmentEdit), equipmentHandler.Update)
			equipment.DELETE("/:id", auth.RequirePermission(models.PermEquipmentDelete), equipmentHandler.Delete)
		}

		// 工单
		workOrderHandler := handlers.NewWorkOrderHandler(c.WorkOrders)
		workOrders := api.Group("/work-orders", auth.RequireLogin())
		{
			workOrders.POST("", auth.RequirePermission(models.PermWorkOrderCreate), workOrderHandler.Create)
			workOrders.GET("", auth.RequirePermission(models.PermWorkOrderView), workOrderHandler.List)
			workOrders.GET("/:id", auth.RequirePermission(models.PermWorkOrderView), workOrderHandler.GetByID)
			workOrders.PUT("/:id", auth.RequirePermission(models.PermWorkOrderEdit), workOrderHandler.Update)
			workOrders.DELETE("/:id", auth.RequirePermission(models.PermWorkOrderDelete), workOrderHandler.Delete)
			workOrders.PUT("/:id/assign", auth.RequirePermission(models.PermWorkOrderEdit), workOrderHandler.Assign)
			workOrders.PUT("/:id/status", auth.RequirePermission(models.PermWorkOrderEdit), workOrderHandler.UpdateStatus)
			workOrders.POST("/:id/comments", auth.RequirePermission(models.PermWorkOrderView), workOrderHandler.AddComment)
			workOrders.PUT("/:id/checklist/:item_id", auth.RequirePermission(models.PermWorkOrderEdit), workOrderHandler.UpdateChecklistItem)
		}

		// 保养计划
		scheduleHandler := handlers.NewMaintenanceScheduleHandler(c.Schedules)
		schedules := api.Group("/maintenance-schedules", auth.RequireLogin())
		{
			schedules.POST("", auth.RequirePermission(models.PermEquipmentEdit), scheduleHandler.Create)
			schedules.GET("", auth.RequirePermission(models.PermEquipmentView), scheduleHandler.List)
			schedules.GET("/upcoming", auth.RequirePermission(models.PermEquipmentView), scheduleHandler.Upcoming)
			schedules.GET("/:id", auth.RequirePermission(models.PermEquipmentView), scheduleHandler.GetByID)
			schedules.PUT("/:id", auth.RequirePermission(models.PermEquipmentEdit), scheduleHandler.Update)
			schedules.DELETE("/:id", auth.RequirePermission(models.PermEquipmentEdit), scheduleHandler.Delete)
			schedules.POST("/:id/complete", auth.RequirePermission(models.PermWorkOrderCreate), scheduleHandler.Complete)
		}

		// 库存
		inventoryHandler := handlers.NewInventoryHandler(c.Inventory)
		inventory := api.Group("/inventory", auth.RequireLogin())
		{
			inventory.POST("", auth.RequirePermission(models.PermInventoryManage), inventoryHandler.Create)
			inventory.GET("", auth.RequirePermission(models.PermInventoryView), inventoryHandler.List)
			inventory.GET("/:id", auth.RequirePermission(models.PermInventoryView), inventoryHandler.GetByID)
			inventory.PUT("/:id", auth.RequirePermission(models.PermInventoryManage), inventoryHandler.Update)
			inventory.POST("/:id/adjust", auth.RequirePermission(models.PermInventoryManage), inventoryHandler.AdjustStock)
			inventory.DELETE("/:id", auth.RequirePermission(models.PermInventoryManage), inventoryHandler.Delete)
		}

		// 班组
		teamHandler := handlers.NewTeamHandler(c.Teams)
		teams := api.Group("/teams", auth.RequireLogin())
		{
			teams.POST("", auth.RequirePermission(models.PermTeamManage), teamHandler.Create)
			teams.GET("", auth.RequirePermission(models.PermTeamView), teamHandler.List)
			teams.GET("/:id", auth.RequirePermission(models.PermTeamView), teamHandler.GetByID)
			teams.PUT("/:id", auth.RequirePermission(models.PermTeamManage), teamHandler.Update)
			teams.PUT("/:id/members", auth.RequirePermission(models.PermTeamManage), teamHandler.SetMembers)
			teams.DELETE("/:id", auth.RequirePermission(models.PermTeamManage), teamHandler.Delete)
		}

		// SOP
		sopHandler := handlers.NewSOPHandler(c.SOPs)
		sops := api.Group("/sops", auth.RequireLogin())
		{
			sops.POST("", auth.RequirePermission(models.PermSOPManage), sopHandler.Create)
			sops.GET("", auth.RequirePermission(models.PermSOPView), sopHandler.List)
			sops.GET("/:id", auth.RequirePermission(models.PermSOPView), sopHandler.GetByID)
			sops.PUT("/:id", auth.RequirePermission(models.PermSOPManage), sopHandler.Update)
			sops.DELETE("/:id", auth.RequirePermission(models.PermSOPManage), sopHandler.Delete)
		}

		// 基础数据：位置、部门、分类、供应商
		lookupHandler := handlers.NewLookupHandler(c.Lookups)
		registerLookup(api.Group("/locations", auth.RequireLogin()), auth, models.PermLocationView, models.PermLocationManage, lookupHandler.Locations)
		registerLookup(api.Group("/departments", auth.RequireLogin()), auth, models.PermUserView, models.PermUserEdit, lookupHandler.Departments)
		registerLookup(api.Group("/categories", auth.RequireLogin()), auth, models.PermEquipmentView, models.PermEquipmentEdit, lookupHandler.Categories)
		registerLookup(api.Group("/vendors", auth.RequireLogin()), auth, models.PermInventoryView, models.PermInventoryManage, lookupHandler.Vendors)

		// 通知
		notificationHandler := handlers.NewNotificationHandler(c.Notifications)
		notifications := api.Group("/notifications", auth.RequireLogin())
		{
			notifications.GET("", auth.RequirePermission(models.PermAdminDashboard), notificationHandler.List)
			notifications.POST("/:id/retry", auth.RequirePermission(models.PermAdminDashboard), notificationHandler.Retry)
			notifications.POST("/whatsapp/register", notificationHandler.RegisterWhatsApp)
			notifications.POST("/whatsapp/verify", notificationHandler.VerifyWhatsApp)
		}

		// 报表
		reportHandler := handlers.NewReportHandler(c.Reports)
		api.GET("/reports/dashboard", auth.RequireLogin(), auth.RequirePermission(models.PermReportsAccess), reportHandler.Dashboard)
	}
}

// lookupRoutes 基础数据处理器的方法集
type lookupRoutes interface {
	Create(*gin.Context)
	GetByID(*gin.Context)
	List(*gin.Context)
	Update(*gin.Context)
	Delete(*gin.Context)
}

func registerLookup(group *gin.RouterGroup, auth *middleware.AuthMiddleware, viewPerm, managePerm string, h lookupRoutes) {
	group.POST("", auth.RequirePermission(managePerm), h.Create)
	group.GET("", auth.RequirePermission(viewPerm), h.List)
	group.GET("/:id", auth.RequirePermission(viewPerm), h.GetByID)
	group.PUT("/:id", auth.RequirePermission(managePerm), h.Update)
	group.DELETE("/:id", auth.RequirePermission(managePerm), h.Delete)
}
