package services

import (
	"cmms/internal/models"
	"cmms/pkg/pagination"
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type InventoryService struct {
	db    *gorm.DB
	store *ScopedStore[models.Inventory, *models.Inventory]
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{
		db:    db,
		store: NewScopedStore[models.Inventory](db, "name", "name", "part_number"),
	}
}

// InventoryInput 库存参数
type InventoryInput struct {
	PartNumber   string
	Name         string
	Description  string
	Category     string
	CurrentStock int
	MinimumStock int
	MaximumStock int
	UnitCost     float64
	Unit         string
	VendorID     *uint
	LocationID   *uint
}

// Create 创建库存项
func (s *InventoryService) Create(ctx context.Context, actor *Actor, input InventoryInput) (*models.Inventory, error) {
	item := &models.Inventory{}
	if err := s.apply(ctx, actor, item, input); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, actor, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetByID 获取库存项
func (s *InventoryService) GetByID(ctx context.Context, actor *Actor, id uint) (*models.Inventory, error) {
	return s.store.Get(ctx, actor, id, "Vendor")
}

// List 库存列表，lowStock 为 true 时只返回低于下限的
func (s *InventoryService) List(ctx context.Context, actor *Actor, search string, lowStock bool, page *pagination.PageParams) ([]models.Inventory, int64, error) {
	return s.store.List(ctx, actor, search, page, func(db *gorm.DB) *gorm.DB {
		if lowStock {
			return db.Where("current_stock <= minimum_stock")
		}
		return db
	})
}

// Update 更新库存项
func (s *InventoryService) Update(ctx context.Context, actor *Actor, id uint, input InventoryInput) (*models.Inventory, error) {
	item, err := s.store.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, actor, item, input); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, actor, item); err != nil {
		return nil, err
	}
	return item, nil
}

// AdjustStock 出入库，库存不能为负
func (s *InventoryService) AdjustStock(ctx context.Context, actor *Actor, id uint, delta int) (*models.Inventory, error) {
	var item *models.Inventory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		item, err = findOwned[models.Inventory](tx, actor, id)
		if err != nil {
			return err
		}
		if item.CurrentStock+delta < 0 {
			return fmt.Errorf("%w: 库存不足", ErrInvalidInput)
		}
		item.CurrentStock += delta
		return tx.Model(item).Update("current_stock", item.CurrentStock).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Delete 删除库存项
func (s *InventoryService) Delete(ctx context.Context, actor *Actor, id uint) error {
	return s.store.Delete(ctx, actor, id)
}

func (s *InventoryService) apply(ctx context.Context, actor *Actor, item *models.Inventory, input InventoryInput) error {
	name, err := requireName(input.Name)
	if err != nil {
		return err
	}
	part := strings.TrimSpace(input.PartNumber)
	if part == "" {
		return fmt.Errorf("%w: 零件编号不能为空", ErrInvalidInput)
	}
	if input.CurrentStock < 0 || input.MinimumStock < 0 || input.MaximumStock < 0 {
		return fmt.Errorf("%w: 库存数量不能为负", ErrInvalidInput)
	}

	db := s.db.WithContext(ctx)
	if err := assertRef[models.Vendor](db, actor, input.VendorID, "vendor_id"); err != nil {
		return err
	}
	if err := assertRef[models.Location](db, actor, input.LocationID, "location_id"); err != nil {
		return err
	}

	var count int64
	query := db.Model(&models.Inventory{}).Scopes(TenantScope(actor)).Where("part_number = ?", part)
	if item.ID != 0 {
		query = query.Where("id <> ?", item.ID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: 零件编号已存在", ErrConflict)
	}

	item.PartNumber = part
	item.Name = name
	item.Description = input.Description
	item.Category = input.Category
	item.CurrentStock = input.CurrentStock
	item.MinimumStock = input.MinimumStock
	item.MaximumStock = input.MaximumStock
	item.UnitCost = input.UnitCost
	item.Unit = input.Unit
	item.VendorID = input.VendorID
	item.LocationID = input.LocationID
	return nil
}
