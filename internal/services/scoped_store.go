package services

import (
	"cmms/internal/models"
	"cmms/pkg/pagination"
	"context"

	"gorm.io/gorm"
)

// TenantRecord 可写入的租户业务记录
type TenantRecord[T any] interface {
	*T
	models.TenantOwned
	AssignTenant(tenantID uint)
}

// ScopedStore 租户隔离的通用增删改查，列表走 TenantScope，按ID访问走 AssertOwned
type ScopedStore[T any, P TenantRecord[T]] struct {
	db           *gorm.DB
	searchFields []string
	order        string
}

// NewScopedStore 创建通用存储，searchFields 用于 List 的模糊搜索
func NewScopedStore[T any, P TenantRecord[T]](db *gorm.DB, order string, searchFields ...string) *ScopedStore[T, P] {
	if order == "" {
		order = "id"
	}
	return &ScopedStore[T, P]{db: db, searchFields: searchFields, order: order}
}

// Create 创建记录，租户取自操作者
func (s *ScopedStore[T, P]) Create(ctx context.Context, actor *Actor, rec P) error {
	if actor == nil {
		return ErrPermissionDenied
	}
	rec.AssignTenant(actor.TenantID)
	return s.db.WithContext(ctx).Create(rec).Error
}

// Get 按ID获取
func (s *ScopedStore[T, P]) Get(ctx context.Context, actor *Actor, id uint, preloads ...string) (P, error) {
	return findOwned[T, P](s.db.WithContext(ctx), actor, id, preloads...)
}

// List 分页查询，附加条件通过 scopes 传入
func (s *ScopedStore[T, P]) List(ctx context.Context, actor *Actor, search string, page *pagination.PageParams, scopes ...func(*gorm.DB) *gorm.DB) ([]T, int64, error) {
	var items []T
	var total int64

	query := s.db.WithContext(ctx).Model(new(T)).Scopes(TenantScope(actor)).Scopes(scopes...)
	if search != "" && len(s.searchFields) > 0 {
		like := "%" + search + "%"
		cond := s.db.Where(s.searchFields[0]+" LIKE ?", like)
		for _, f := range s.searchFields[1:] {
			cond = cond.Or(f+" LIKE ?", like)
		}
		query = query.Where(cond)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Scopes(page.Paginate()).Order(s.order).Find(&items).Error
	return items, total, err
}

// Save 保存已加载的记录，保存前再次校验归属
func (s *ScopedStore[T, P]) Save(ctx context.Context, actor *Actor, rec P) error {
	if err := AssertOwned(rec, actor); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(rec).Error
}

// Delete 按ID删除
func (s *ScopedStore[T, P]) Delete(ctx context.Context, actor *Actor, id uint) error {
	rec, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(rec).Error
}
