package database

import (
	"cmms/internal/models"
	"cmms/pkg/logger"

	"gorm.io/gorm"
)

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := db.AutoMigrate(
		&models.Tenant{},
		&models.Role{},
		&models.User{},
		&models.Location{},
		&models.Department{},
		&models.Category{},
		&models.Vendor{},
		&models.Equipment{},
		&models.Team{},
		&models.SOP{},
		&models.SOPChecklistItem{},
		&models.WorkOrder{},
		&models.WorkOrderChecklist{},
		&models.WorkOrderComment{},
		&models.MaintenanceSchedule{},
		&models.Inventory{},
		// 通知
		&models.NotificationLog{},
		&models.WhatsAppUser{},
	)
	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}
