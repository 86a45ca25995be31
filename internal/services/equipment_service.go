package services

import (
	"cmms/internal/models"
	"cmms/pkg/pagination"
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type EquipmentService struct {
	db    *gorm.DB
	store *ScopedStore[models.Equipment, *models.Equipment]
}

func NewEquipmentService(db *gorm.DB) *EquipmentService {
	return &EquipmentService{
		db:    db,
		store: NewScopedStore[models.Equipment](db, "name", "name", "asset_tag", "serial_number", "manufacturer"),
	}
}

// EquipmentInput 设备参数
type EquipmentInput struct {
	Name             string
	AssetTag         string
	Category         string
	Manufacturer     string
	Model            string
	SerialNumber     string
	Description      string
	LocationID       *uint
	DepartmentID     *uint
	Status           string
	Criticality      string
	InstallationDate *time.Time
	WarrantyExpiry   *time.Time
}

// EquipmentFilter 设备筛选
type EquipmentFilter struct {
	Search     string
	Status     string
	Category   string
	LocationID uint
}

// Create 创建设备
func (s *EquipmentService) Create(ctx context.Context, actor *Actor, input EquipmentInput) (*models.Equipment, error) {
	eq := &models.Equipment{CreatedBy: actor.UserID}
	if err := s.apply(ctx, actor, eq, input); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, actor, eq); err != nil {
		return nil, err
	}
	return eq, nil
}

// GetByID 获取设备
func (s *EquipmentService) GetByID(ctx context.Context, actor *Actor, id uint) (*models.Equipment, error) {
	return s.store.Get(ctx, actor, id, "Location", "Department")
}

// List 设备列表
func (s *EquipmentService) List(ctx context.Context, actor *Actor, filter EquipmentFilter, page *pagination.PageParams) ([]models.Equipment, int64, error) {
	return s.store.List(ctx, actor, filter.Search, page, func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.Category != "" {
			db = db.Where("category = ?", filter.Category)
		}
		if filter.LocationID != 0 {
			db = db.Where("location_id = ?", filter.LocationID)
		}
		return db
	})
}

// Update 更新设备
func (s *EquipmentService) Update(ctx context.Context, actor *Actor, id uint, input EquipmentInput) (*models.Equipment, error) {
	eq, err := s.store.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, actor, eq, input); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, actor, eq); err != nil {
		return nil, err
	}
	return eq, nil
}

// Delete 删除设备及其保养计划，工单保留但解除关联
func (s *EquipmentService) Delete(ctx context.Context, actor *Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eq, err := findOwned[models.Equipment](tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Where("equipment_id = ?", eq.ID).Delete(&models.MaintenanceSchedule{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.WorkOrder{}).Where("equipment_id = ?", eq.ID).Update("equipment_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.SOP{}).Where("equipment_id = ?", eq.ID).Update("equipment_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(eq).Error
	})
}

func (s *EquipmentService) apply(ctx context.Context, actor *Actor, eq *models.Equipment, input EquipmentInput) error {
	name, err := requireName(input.Name)
	if err != nil {
		return err
	}
	tag := strings.TrimSpace(input.AssetTag)
	if tag == "" {
		return fmt.Errorf("%w: 资产编号不能为空", ErrInvalidInput)
	}
	status := input.Status
	if status == "" {
		status = models.EquipmentOperational
	}
	if !models.IsValidEquipmentStatus(status) {
		return fmt.Errorf("%w: 无效的设备状态 %s", ErrInvalidInput, status)
	}
	criticality := input.Criticality
	if criticality == "" {
		criticality = eq.Criticality
	}
	if criticality == "" {
		criticality = models.CriticalityMedium
	}
	if !models.IsValidCriticality(criticality) {
		return fmt.Errorf("%w: 无效的重要程度 %s", ErrInvalidInput, criticality)
	}

	db := s.db.WithContext(ctx)
	if err := assertRef[models.Location](db, actor, input.LocationID, "location_id"); err != nil {
		return err
	}
	if err := assertRef[models.Department](db, actor, input.DepartmentID, "department_id"); err != nil {
		return err
	}

	var count int64
	query := db.Model(&models.Equipment{}).Scopes(TenantScope(actor)).Where("asset_tag = ?", tag)
	if eq.ID != 0 {
		query = query.Where("id <> ?", eq.ID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: 资产编号已存在", ErrConflict)
	}

	eq.Name = name
	eq.AssetTag = tag
	eq.Category = input.Category
	eq.Manufacturer = input.Manufacturer
	eq.Model = input.Model
	eq.SerialNumber = input.SerialNumber
	eq.Description = input.Description
	eq.LocationID = input.LocationID
	eq.DepartmentID = input.DepartmentID
	eq.Status = status
	eq.Criticality = criticality
	eq.InstallationDate = input.InstallationDate
	eq.WarrantyExpiry = input.WarrantyExpiry
	return nil
}
