package services

import (
	"cmms/internal/models"
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// LookupService 位置、部门、分类、供应商等基础数据
type LookupService struct {
	db          *gorm.DB
	Locations   *ScopedStore[models.Location, *models.Location]
	Departments *ScopedStore[models.Department, *models.Department]
	Categories  *ScopedStore[models.Category, *models.Category]
	Vendors     *ScopedStore[models.Vendor, *models.Vendor]
}

func NewLookupService(db *gorm.DB) *LookupService {
	return &LookupService{
		db:          db,
		Locations:   NewScopedStore[models.Location](db, "name", "name", "address"),
		Departments: NewScopedStore[models.Department](db, "name", "name"),
		Categories:  NewScopedStore[models.Category](db, "name", "name"),
		Vendors:     NewScopedStore[models.Vendor](db, "name", "name", "contact_person", "email"),
	}
}

// ValidateLocationParent 上级位置必须属于同一租户且不能是自己
func (s *LookupService) ValidateLocationParent(ctx context.Context, actor *Actor, locationID uint, parentID *uint) error {
	if parentID == nil || *parentID == 0 {
		return nil
	}
	if *parentID == locationID {
		return fmt.Errorf("%w: 上级位置不能是自己", ErrInvalidInput)
	}
	return assertRef[models.Location](s.db.WithContext(ctx), actor, parentID, "parent_id")
}

// DeleteLocation 删除位置并解除设备、工单、库存上的引用
func (s *LookupService) DeleteLocation(ctx context.Context, actor *Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loc, err := findOwned[models.Location](tx, actor, id)
		if err != nil {
			return err
		}
		for _, m := range []interface{}{&models.Equipment{}, &models.WorkOrder{}, &models.Inventory{}} {
			if err := tx.Model(m).Where("location_id = ?", loc.ID).Update("location_id", nil).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Location{}).Where("parent_id = ?", loc.ID).Update("parent_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(loc).Error
	})
}

// DeleteDepartment 删除部门并解除设备上的引用
func (s *LookupService) DeleteDepartment(ctx context.Context, actor *Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dept, err := findOwned[models.Department](tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Equipment{}).Where("department_id = ?", dept.ID).Update("department_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(dept).Error
	})
}

// DeleteVendor 删除供应商并解除库存上的引用
func (s *LookupService) DeleteVendor(ctx context.Context, actor *Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vendor, err := findOwned[models.Vendor](tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Inventory{}).Where("vendor_id = ?", vendor.ID).Update("vendor_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(vendor).Error
	})
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: 名称不能为空", ErrInvalidInput)
	}
	return name, nil
}
