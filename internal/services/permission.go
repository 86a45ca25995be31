package services

import (
	"cmms/internal/models"
	"cmms/pkg/logger"
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PermissionService struct {
	db    *gorm.DB
	cache *RoleCache
}

func NewPermissionService(db *gorm.DB, cache *RoleCache) *PermissionService {
	return &PermissionService{db: db, cache: cache}
}

// HasPermission 判断操作者是否拥有权限。
// 只看 role_id 关联的角色，不读取用户表上冗余的角色名；任何异常都拒绝
func (s *PermissionService) HasPermission(ctx context.Context, actor *Actor, permission string) bool {
	allowed := s.check(ctx, actor, permission)
	if !allowed {
		permissionDenials.WithLabelValues(permission).Inc()
	}
	return allowed
}

func (s *PermissionService) check(ctx context.Context, actor *Actor, permission string) bool {
	if actor == nil || actor.RoleID == nil {
		return false
	}

	role, err := s.loadRole(ctx, *actor.RoleID)
	if err != nil {
		logger.GetLogger().WithFields(logrus.Fields{
			"user_id": actor.UserID,
			"role_id": *actor.RoleID,
		}).Warnf("Permission check failed to load role: %v", err)
		return false
	}
	if role.TenantID != actor.TenantID {
		return false
	}

	r := role.role()
	// 超级角色
	if r.IsAdmin() {
		return true
	}
	return r.IsActive && r.Grants(permission)
}

// ActorPermissions 返回操作者的有效权限列表
func (s *PermissionService) ActorPermissions(ctx context.Context, actor *Actor) ([]string, error) {
	if actor == nil || actor.RoleID == nil {
		return []string{}, nil
	}
	role, err := s.loadRole(ctx, *actor.RoleID)
	if err != nil {
		return nil, err
	}
	if role.TenantID != actor.TenantID {
		return []string{}, nil
	}
	if role.role().IsAdmin() {
		all := make([]string, 0, len(models.PermissionCatalog))
		for _, p := range models.PermissionCatalog {
			all = append(all, p.Code)
		}
		return all, nil
	}
	if !role.IsActive {
		return []string{}, nil
	}
	return append([]string{}, role.Permissions...), nil
}

// Catalog 权限词表
func (s *PermissionService) Catalog() []models.PermissionDef {
	return models.PermissionCatalog
}

func (s *PermissionService) loadRole(ctx context.Context, roleID uint) (*roleSnapshot, error) {
	if snap, ok := s.cache.get(ctx, roleID); ok {
		return snap, nil
	}

	// 先记代数再读库
	gen, cacheable := s.cache.generation(ctx, roleID)

	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, roleID).Error; err != nil {
		return nil, err
	}
	snap := snapshotOf(&role)
	if cacheable {
		s.cache.set(ctx, snap, gen)
	}
	return snap, nil
}
