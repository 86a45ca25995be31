package main

import (
	"cmms/internal/models"
	"cmms/internal/services"
	"cmms/pkg/config"
	"cmms/pkg/logger"
	"context"
	"fmt"
)

// seedData 初始化种子数据
func seedData(c *services.Container, cfg config.SeedConfig) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")
	ctx := context.Background()

	// 1. 补齐已有租户缺失的系统角色
	var tenants []models.Tenant
	if err := c.DB.Find(&tenants).Error; err != nil {
		return fmt.Errorf("查询租户失败: %v", err)
	}
	for _, t := range tenants {
		if _, err := c.Roles.ProvisionDefaults(ctx, t.ID); err != nil {
			return fmt.Errorf("初始化租户 %s 系统角色失败: %v", t.Code, err)
		}
	}

	// 2. 旧数据只有角色名的用户补齐 role_id
	linked, err := c.Users.BackfillRoleIDs(ctx)
	if err != nil {
		return fmt.Errorf("补齐用户角色失败: %v", err)
	}
	if linked > 0 {
		appLogger.Infof("Linked %d legacy users to roles", linked)
	}

	// 3. 创建默认租户和管理员
	if err := createDefaultTenant(ctx, c, cfg); err != nil {
		return fmt.Errorf("创建默认租户失败: %v", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

// createDefaultTenant 创建默认租户，未配置管理员密码或已存在时跳过
func createDefaultTenant(ctx context.Context, c *services.Container, cfg config.SeedConfig) error {
	if cfg.AdminPassword == "" {
		logger.GetLogger().Info("SEED_ADMIN_PASSWORD not set, skipping default tenant")
		return nil
	}

	var count int64
	c.DB.Model(&models.Tenant{}).Where("code = ?", cfg.TenantCode).Count(&count)
	if count > 0 {
		logger.GetLogger().Info("Default tenant already exists, skipping")
		return nil
	}

	tenant, admin, err := c.Tenants.Signup(ctx, services.SignupInput{
		TenantName: cfg.TenantName,
		TenantCode: cfg.TenantCode,
		Username:   cfg.AdminUsername,
		Email:      cfg.AdminEmail,
		Password:   cfg.AdminPassword,
		FirstName:  "System",
		LastName:   "Administrator",
	})
	if err != nil {
		return err
	}

	logger.GetLogger().Infof("Default tenant %s created with admin %s", tenant.Code, admin.Username)
	return nil
}

// setTenantStatus 运维命令：启用或停用租户
func setTenantStatus(c *services.Container, code, status string) error {
	if code == "" {
		return fmt.Errorf("缺少 -tenant 参数")
	}
	tenant, err := c.Tenants.SetStatus(context.Background(), code, status)
	if err != nil {
		return err
	}
	logger.GetLogger().Infof("Tenant %s status set to %s", tenant.Code, tenant.Status)
	return nil
}
