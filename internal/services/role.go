package services

import (
	"cmms/internal/models"
	"cmms/pkg/logger"
	"cmms/pkg/pagination"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RoleService struct {
	db    *gorm.DB
	cache *RoleCache
}

func NewRoleService(db *gorm.DB, cache *RoleCache) *RoleService {
	return &RoleService{db: db, cache: cache}
}

// RoleInput 创建角色参数
type RoleInput struct {
	Name        string
	DisplayName string
	Description string
	Permissions []string
}

// RoleUpdate 更新角色参数，nil 字段不修改
type RoleUpdate struct {
	Name        *string
	DisplayName *string
	Description *string
	Permissions *[]string
	IsActive    *bool
}

// ========== 系统角色 ==========

// ProvisionDefaults 为租户创建系统角色，已存在的 (租户, 名称) 跳过
func (s *RoleService) ProvisionDefaults(ctx context.Context, tenantID uint) ([]models.Role, error) {
	var roles []models.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		roles, err = provisionDefaultRoles(tx, tenantID)
		return err
	})
	return roles, err
}

func provisionDefaultRoles(tx *gorm.DB, tenantID uint) ([]models.Role, error) {
	roles := make([]models.Role, 0, 4)
	for _, def := range models.DefaultRoles() {
		var role models.Role
		err := tx.Where("tenant_id = ? AND name = ?", tenantID, def.Name).First(&role).Error
		if err == nil {
			roles = append(roles, role)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		role = models.Role{
			TenantID:     tenantID,
			Name:         def.Name,
			DisplayName:  def.DisplayName,
			Description:  def.Description,
			Permissions:  def.Permissions,
			IsSystemRole: true,
			IsActive:     true,
		}
		if err := tx.Create(&role).Error; err != nil {
			return nil, fmt.Errorf("创建系统角色 %s 失败: %w", def.Name, err)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// ========== 基础CRUD方法 ==========

// CreateCustom 创建自定义角色，名称统一转小写
func (s *RoleService) CreateCustom(ctx context.Context, actor *Actor, input RoleInput) (*models.Role, error) {
	name := strings.ToLower(strings.TrimSpace(input.Name))
	if err := validateRoleName(name); err != nil {
		return nil, err
	}
	perms, err := normalizePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureUniqueName(db, actor.TenantID, name, 0); err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = name
	}
	role := &models.Role{
		TenantID:     actor.TenantID,
		Name:         name,
		DisplayName:  displayName,
		Description:  input.Description,
		Permissions:  perms,
		IsSystemRole: false,
		IsActive:     true,
	}
	if err := db.Create(role).Error; err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"tenant_id": actor.TenantID,
		"role":      name,
		"actor_id":  actor.UserID,
	}).Info("Custom role created")
	return role, nil
}

// GetByID 根据ID获取角色
func (s *RoleService) GetByID(ctx context.Context, actor *Actor, id uint) (*models.Role, error) {
	return findOwned[models.Role](s.db.WithContext(ctx), actor, id)
}

// List 分页获取租户角色，isActive 为 nil 时不过滤
func (s *RoleService) List(ctx context.Context, actor *Actor, isActive *bool, page *pagination.PageParams) ([]models.Role, int64, error) {
	var roles []models.Role
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Role{}).Scopes(TenantScope(actor))
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Scopes(page.Paginate()).Order("is_system_role DESC, name").Find(&roles).Error
	return roles, total, err
}

// Update 更新自定义角色
func (s *RoleService) Update(ctx context.Context, actor *Actor, id uint, input RoleUpdate) (*models.Role, error) {
	var role *models.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		role, err = findOwned[models.Role](tx, actor, id)
		if err != nil {
			return err
		}
		if role.IsSystemRole {
			return ErrImmutableRole
		}

		renamed := false
		if input.Name != nil {
			name := strings.ToLower(strings.TrimSpace(*input.Name))
			if name != role.Name {
				if err := validateRoleName(name); err != nil {
					return err
				}
				if err := s.ensureUniqueName(tx, role.TenantID, name, role.ID); err != nil {
					return err
				}
				role.Name = name
				renamed = true
			}
		}
		if input.DisplayName != nil {
			role.DisplayName = strings.TrimSpace(*input.DisplayName)
		}
		if input.Description != nil {
			role.Description = *input.Description
		}
		if input.Permissions != nil {
			perms, err := normalizePermissions(*input.Permissions)
			if err != nil {
				return err
			}
			role.Permissions = perms
		}
		if input.IsActive != nil {
			role.IsActive = *input.IsActive
		}

		if err := tx.Save(role).Error; err != nil {
			return err
		}
		// 冗余角色名随角色一起写入
		if renamed {
			return tx.Model(&models.User{}).Where("role_id = ?", role.ID).Update("role", role.Name).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, role.ID)
	return role, nil
}

// Delete 删除自定义角色。仍有用户引用时必须提供同租户的启用角色作为接替，
// 用户改派和角色删除在同一事务内完成
func (s *RoleService) Delete(ctx context.Context, actor *Actor, id uint, reassignTo *uint) error {
	var reassigned int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := findOwned[models.Role](tx, actor, id)
		if err != nil {
			return err
		}
		if role.IsSystemRole {
			return ErrImmutableRole
		}

		var userCount int64
		if err := tx.Model(&models.User{}).Where("role_id = ?", role.ID).Count(&userCount).Error; err != nil {
			return err
		}

		if userCount > 0 {
			if reassignTo == nil || *reassignTo == 0 {
				return ErrReassignmentRequired
			}
			if *reassignTo == role.ID {
				return ErrInvalidReassignment
			}
			target, err := findOwned[models.Role](tx, actor, *reassignTo)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return ErrInvalidReassignment
				}
				return err
			}
			if !target.IsActive {
				return ErrInvalidReassignment
			}

			result := tx.Model(&models.User{}).Where("role_id = ?", role.ID).
				Updates(map[string]interface{}{"role_id": target.ID, "role": target.Name})
			if result.Error != nil {
				return result.Error
			}
			reassigned = result.RowsAffected
		}

		return tx.Delete(role).Error
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, id)
	logger.GetLogger().WithFields(logrus.Fields{
		"tenant_id":  actor.TenantID,
		"role_id":    id,
		"reassigned": reassigned,
		"actor_id":   actor.UserID,
	}).Info("Role deleted")
	return nil
}

// CountUsers 统计引用该角色的用户数
func (s *RoleService) CountUsers(ctx context.Context, actor *Actor, id uint) (int64, error) {
	db := s.db.WithContext(ctx)
	if _, err := findOwned[models.Role](db, actor, id); err != nil {
		return 0, err
	}
	var count int64
	err := db.Model(&models.User{}).Where("role_id = ?", id).Count(&count).Error
	return count, err
}

// ========== 验证方法 ==========

func (s *RoleService) ensureUniqueName(db *gorm.DB, tenantID uint, name string, excludeID uint) error {
	var count int64
	query := db.Model(&models.Role{}).Where("tenant_id = ? AND name = ?", tenantID, name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateRole
	}
	return nil
}

// validateRoleName 角色名 2-50 个字符，只允许小写字母、数字和下划线
func validateRoleName(name string) error {
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return fmt.Errorf("%w: 角色名称长度必须在2-50个字符之间", ErrInvalidInput)
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_') {
			return fmt.Errorf("%w: 角色名称只能包含字母、数字和下划线", ErrInvalidInput)
		}
	}
	return nil
}

// normalizePermissions 去重并校验权限代码
func normalizePermissions(perms []string) ([]string, error) {
	seen := make(map[string]bool, len(perms))
	result := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		if !models.IsKnownPermission(p) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPermission, p)
		}
		seen[p] = true
		result = append(result, p)
	}
	return result, nil
}
