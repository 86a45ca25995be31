package services

import (
	"cmms/internal/models"
	"cmms/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type TenantService struct {
	db    *gorm.DB
	cache *RoleCache
}

func NewTenantService(db *gorm.DB, cache *RoleCache) *TenantService {
	return &TenantService{db: db, cache: cache}
}

// SignupInput 注册新租户及其管理员
type SignupInput struct {
	TenantName string
	TenantCode string
	Username   string
	Email      string
	Password   string
	FirstName  string
	LastName   string
}

// Signup 在一个事务内创建租户、系统角色和首个管理员，任何一步失败全部回滚
func (s *TenantService) Signup(ctx context.Context, input SignupInput) (*models.Tenant, *models.User, error) {
	code := strings.ToLower(strings.TrimSpace(input.TenantCode))
	name := strings.TrimSpace(input.TenantName)
	if err := validateTenant(name, code); err != nil {
		return nil, nil, err
	}
	if err := validateCredentials(input.Username, input.Email, input.Password); err != nil {
		return nil, nil, err
	}

	var tenant *models.Tenant
	var admin *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Tenant{}).Where("name = ? OR code = ?", name, code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: 租户名称或代码已存在", ErrConflict)
		}
		if err := ensureUniqueLogin(tx, input.Username, input.Email, 0); err != nil {
			return err
		}

		tenant = &models.Tenant{Name: name, Code: code, Status: models.TenantStatusActive}
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}

		roles, err := provisionDefaultRoles(tx, tenant.ID)
		if err != nil {
			return err
		}
		var adminRole *models.Role
		for i := range roles {
			if roles[i].Name == models.RoleAdmin {
				adminRole = &roles[i]
			}
		}
		if adminRole == nil {
			return errors.New("管理员角色创建失败")
		}

		admin = &models.User{
			TenantModel: models.TenantModel{TenantID: tenant.ID},
			Username:    strings.TrimSpace(input.Username),
			Email:       strings.ToLower(strings.TrimSpace(input.Email)),
			FirstName:   input.FirstName,
			LastName:    input.LastName,
			IsActive:    true,
		}
		admin.BindRole(adminRole)
		if err := admin.SetPassword(input.Password); err != nil {
			return fmt.Errorf("密码加密失败: %v", err)
		}
		return tx.Create(admin).Error
	})
	if err != nil {
		return nil, nil, err
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"tenant_id": tenant.ID,
		"code":      tenant.Code,
		"admin":     admin.Username,
	}).Info("Tenant signed up")
	return tenant, admin, nil
}

// Get 获取操作者所在租户
func (s *TenantService) Get(ctx context.Context, actor *Actor) (*models.Tenant, error) {
	if actor == nil {
		return nil, ErrPermissionDenied
	}
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, actor.TenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// Rename 修改租户名称
func (s *TenantService) Rename(ctx context.Context, actor *Actor, name string) (*models.Tenant, error) {
	tenant, err := s.Get(ctx, actor)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateTenant(name, tenant.Code); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Tenant{}).Where("name = ? AND id <> ?", name, tenant.ID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: 租户名称已存在", ErrConflict)
	}

	tenant.Name = name
	if err := db.Save(tenant).Error; err != nil {
		return nil, err
	}
	return tenant, nil
}

// SetStatus 启用或停用租户，停用后该租户用户无法登录
func (s *TenantService) SetStatus(ctx context.Context, code, status string) (*models.Tenant, error) {
	if !models.ValidTenantStatus(status) {
		return nil, fmt.Errorf("%w: 状态只能是active或inactive", ErrInvalidInput)
	}
	db := s.db.WithContext(ctx)
	var tenant models.Tenant
	if err := db.Where("code = ?", strings.ToLower(code)).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	tenant.Status = status
	if err := db.Save(&tenant).Error; err != nil {
		return nil, err
	}
	logger.GetLogger().WithFields(logrus.Fields{
		"tenant_id": tenant.ID,
		"status":    status,
	}).Info("Tenant status changed")
	return &tenant, nil
}

// Delete 级联删除操作者所在租户的全部数据
func (s *TenantService) Delete(ctx context.Context, actor *Actor) error {
	tenant, err := s.Get(ctx, actor)
	if err != nil {
		return err
	}

	var roleIDs []uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Role{}).Where("tenant_id = ?", tenant.ID).Pluck("id", &roleIDs).Error; err != nil {
			return err
		}

		teams := tx.Model(&models.Team{}).Select("id").Where("tenant_id = ?", tenant.ID)
		workOrders := tx.Model(&models.WorkOrder{}).Select("id").Where("tenant_id = ?", tenant.ID)
		sops := tx.Model(&models.SOP{}).Select("id").Where("tenant_id = ?", tenant.ID)

		// 先删子表，再删带 tenant_id 的表
		if err := tx.Exec("DELETE FROM team_members WHERE team_id IN (?)", teams).Error; err != nil {
			return fmt.Errorf("删除班组成员失败: %w", err)
		}
		if err := tx.Where("work_order_id IN (?)", workOrders).Delete(&models.WorkOrderChecklist{}).Error; err != nil {
			return err
		}
		if err := tx.Where("work_order_id IN (?)", workOrders).Delete(&models.WorkOrderComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sop_id IN (?)", sops).Delete(&models.SOPChecklistItem{}).Error; err != nil {
			return err
		}

		for _, m := range []interface{}{
			&models.NotificationLog{},
			&models.WhatsAppUser{},
			&models.MaintenanceSchedule{},
			&models.WorkOrder{},
			&models.Inventory{},
			&models.Equipment{},
			&models.SOP{},
			&models.Team{},
			&models.User{},
			&models.Role{},
			&models.Location{},
			&models.Department{},
			&models.Category{},
			&models.Vendor{},
		} {
			if err := tx.Where("tenant_id = ?", tenant.ID).Delete(m).Error; err != nil {
				return fmt.Errorf("删除 %T 失败: %w", m, err)
			}
		}
		return tx.Delete(tenant).Error
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, roleIDs...)
	logger.GetLogger().WithFields(logrus.Fields{
		"tenant_id": tenant.ID,
		"actor_id":  actor.UserID,
	}).Warn("Tenant deleted")
	return nil
}

func validateTenant(name, code string) error {
	if n := utf8.RuneCountInString(name); n < 2 || n > 255 {
		return fmt.Errorf("%w: 租户名称长度必须在2-255个字符之间", ErrInvalidInput)
	}
	if len(code) < 2 || len(code) > 50 {
		return fmt.Errorf("%w: 租户代码长度必须在2-50个字符之间", ErrInvalidInput)
	}
	for _, r := range code {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_') {
			return fmt.Errorf("%w: 租户代码只能包含小写字母、数字、-和_", ErrInvalidInput)
		}
	}
	return nil
}
