package services

import (
	"cmms/internal/models"
	"cmms/pkg/pagination"
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type SOPService struct {
	db    *gorm.DB
	store *ScopedStore[models.SOP, *models.SOP]
}

func NewSOPService(db *gorm.DB) *SOPService {
	return &SOPService{
		db:    db,
		store: NewScopedStore[models.SOP](db, "title", "title", "category"),
	}
}

// SOPInput SOP 参数，ChecklistItems 按顺序保存
type SOPInput struct {
	Title             string
	Description       string
	Category          string
	EquipmentID       *uint
	EstimatedDuration int
	SafetyNotes       string
	RequiredTools     string
	IsActive          *bool
	ChecklistItems    []SOPChecklistInput
}

type SOPChecklistInput struct {
	Description string
	IsRequired  bool
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order, id")
}

// Create 创建 SOP
func (s *SOPService) Create(ctx context.Context, actor *Actor, input SOPInput) (*models.SOP, error) {
	var sop *models.SOP
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sop = &models.SOP{IsActive: true, CreatedBy: actor.UserID}
		if err := applySOP(tx, actor, sop, input); err != nil {
			return err
		}
		sop.AssignTenant(actor.TenantID)
		if err := tx.Omit("ChecklistItems").Create(sop).Error; err != nil {
			return err
		}
		return replaceChecklist(tx, sop, input.ChecklistItems)
	})
	if err != nil {
		return nil, err
	}
	return sop, nil
}

// GetByID 获取 SOP 及有序检查项
func (s *SOPService) GetByID(ctx context.Context, actor *Actor, id uint) (*models.SOP, error) {
	sop, err := s.store.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Scopes(orderedItems).Where("sop_id = ?", sop.ID).Find(&sop.ChecklistItems).Error
	return sop, err
}

// List SOP 列表
func (s *SOPService) List(ctx context.Context, actor *Actor, search string, page *pagination.PageParams) ([]models.SOP, int64, error) {
	return s.store.List(ctx, actor, search, page)
}

// Update 更新 SOP，ChecklistItems 为 nil 时检查项不变
func (s *SOPService) Update(ctx context.Context, actor *Actor, id uint, input SOPInput) (*models.SOP, error) {
	var sop *models.SOP
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sop, err = findOwned[models.SOP](tx, actor, id)
		if err != nil {
			return err
		}
		if err := applySOP(tx, actor, sop, input); err != nil {
			return err
		}
		if err := tx.Omit("ChecklistItems").Save(sop).Error; err != nil {
			return err
		}
		if input.ChecklistItems != nil {
			return replaceChecklist(tx, sop, input.ChecklistItems)
		}
		return tx.Scopes(orderedItems).Where("sop_id = ?", sop.ID).Find(&sop.ChecklistItems).Error
	})
	if err != nil {
		return nil, err
	}
	return sop, nil
}

// Delete 删除 SOP 及检查项，保养计划解除关联
func (s *SOPService) Delete(ctx context.Context, actor *Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sop, err := findOwned[models.SOP](tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Where("sop_id = ?", sop.ID).Delete(&models.SOPChecklistItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.MaintenanceSchedule{}).Where("sop_id = ?", sop.ID).Update("sop_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(sop).Error
	})
}

func applySOP(tx *gorm.DB, actor *Actor, sop *models.SOP, input SOPInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return fmt.Errorf("%w: 标题不能为空", ErrInvalidInput)
	}
	if err := assertRef[models.Equipment](tx, actor, input.EquipmentID, "equipment_id"); err != nil {
		return err
	}
	sop.Title = title
	sop.Description = input.Description
	sop.Category = input.Category
	sop.EquipmentID = input.EquipmentID
	sop.EstimatedDuration = input.EstimatedDuration
	sop.SafetyNotes = input.SafetyNotes
	sop.RequiredTools = input.RequiredTools
	if input.IsActive != nil {
		sop.IsActive = *input.IsActive
	}
	return nil
}

func replaceChecklist(tx *gorm.DB, sop *models.SOP, items []SOPChecklistInput) error {
	if err := tx.Where("sop_id = ?", sop.ID).Delete(&models.SOPChecklistItem{}).Error; err != nil {
		return err
	}
	sop.ChecklistItems = make([]models.SOPChecklistItem, 0, len(items))
	for i, in := range items {
		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			return fmt.Errorf("%w: 检查项描述不能为空", ErrInvalidInput)
		}
		sop.ChecklistItems = append(sop.ChecklistItems, models.SOPChecklistItem{
			SOPID:       sop.ID,
			Description: desc,
			IsRequired:  in.IsRequired,
			SortOrder:   i + 1,
		})
	}
	if len(sop.ChecklistItems) == 0 {
		return nil
	}
	return tx.Create(&sop.ChecklistItems).Error
}
