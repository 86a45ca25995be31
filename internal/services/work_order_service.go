package services

import (
	"cmms/internal/models"
	"cmms/pkg/logger"
	"cmms/pkg/pagination"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type WorkOrderService struct {
	db        *gorm.DB
	publisher EventPublisher
	notifier  *NotificationService
	now       func() time.Time
}

func NewWorkOrderService(db *gorm.DB, publisher EventPublisher, notifier *NotificationService) *WorkOrderService {
	return &WorkOrderService{db: db, publisher: publisher, notifier: notifier, now: time.Now}
}

// WorkOrderInput 工单参数
type WorkOrderInput struct {
	Title             string
	Description       string
	Priority          string
	WorkType          string
	EquipmentID       *uint
	LocationID        *uint
	AssignedToID      *uint
	TeamID            *uint
	ScheduledDate     *time.Time
	DueDate           *time.Time
	EstimatedDuration int
	Checklist         []string
}

// WorkOrderFilter 工单筛选
type WorkOrderFilter struct {
	Search       string
	Status       string
	Priority     string
	AssignedToID uint
	EquipmentID  uint
	TeamID       uint
}

// GenerateWorkOrderNumber 生成工单号 WO-YYYYMMDD-XXXXXXXX
func GenerateWorkOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("WO-%s-%s", now.Format("20060102"), suffix)
}

// ========== 基础CRUD方法 ==========

// Create 创建工单
func (s *WorkOrderService) Create(ctx context.Context, actor *Actor, input WorkOrderInput) (*models.WorkOrder, error) {
	var wo *models.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo = &models.WorkOrder{
			TenantModel:     models.TenantModel{TenantID: actor.TenantID},
			WorkOrderNumber: GenerateWorkOrderNumber(s.now()),
			Status:          models.WorkOrderOpen,
			CreatedByID:     actor.UserID,
		}
		if err := applyWorkOrder(tx, actor, wo, input); err != nil {
			return err
		}
		if err := tx.Omit("Checklist", "Comments").Create(wo).Error; err != nil {
			return err
		}
		return createChecklist(tx, wo, input.Checklist)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventWorkOrderCreated, wo, "", actor.UserID)
	s.notifyAssignee(ctx, wo)
	return wo, nil
}

// GetByID 获取工单详情
func (s *WorkOrderService) GetByID(ctx context.Context, actor *Actor, id uint) (*models.WorkOrder, error) {
	db := s.db.WithContext(ctx)
	wo, err := findOwned[models.WorkOrder](db, actor, id, "Equipment", "AssignedTo", "Team")
	if err != nil {
		return nil, err
	}
	if err := db.Where("work_order_id = ?", wo.ID).Order("sort_order, id").Find(&wo.Checklist).Error; err != nil {
		return nil, err
	}
	if err := db.Where("work_order_id = ?", wo.ID).Order("created_at, id").Find(&wo.Comments).Error; err != nil {
		return nil, err
	}
	return wo, nil
}

// List 工单列表
func (s *WorkOrderService) List(ctx context.Context, actor *Actor, filter WorkOrderFilter, page *pagination.PageParams) ([]models.WorkOrder, int64, error) {
	var items []models.WorkOrder
	var total int64

	query := s.db.WithContext(ctx).Model(&models.WorkOrder{}).Scopes(TenantScope(actor))
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR work_order_number LIKE ?", like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.AssignedToID != 0 {
		query = query.Where("assigned_to_id = ?", filter.AssignedToID)
	}
	if filter.EquipmentID != 0 {
		query = query.Where("equipment_id = ?", filter.EquipmentID)
	}
	if filter.TeamID != 0 {
		query = query.Where("team_id = ?", filter.TeamID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Equipment").Preload("AssignedTo").
		Scopes(page.Paginate()).Order("created_at DESC, id DESC").Find(&items).Error
	return items, total, err
}

// Update 更新工单基本信息，状态通过 UpdateStatus 修改
func (s *WorkOrderService) Update(ctx context.Context, actor *Actor, id uint, input WorkOrderInput) (*models.WorkOrder, error) {
	var wo *models.WorkOrder
	var reassigned bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		wo, err = findOwned[models.WorkOrder](tx, actor, id)
		if err != nil {
			return err
		}
		before := wo.AssignedToID
		if err := applyWorkOrder(tx, actor, wo, input); err != nil {
			return err
		}
		reassigned = !sameID(before, wo.AssignedToID)
		return tx.Omit("Checklist", "Comments", "Equipment", "AssignedTo", "Team").Save(wo).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventWorkOrderUpdated, wo, "", actor.UserID)
	if reassigned {
		s.notifyAssignee(ctx, wo)
	}
	return wo, nil
}

// Assign 指派技术员或班组
func (s *WorkOrderService) Assign(ctx context.Context, actor *Actor, id uint, userID, teamID *uint) (*models.WorkOrder, error) {
	db := s.db.WithContext(ctx)
	wo, err := findOwned[models.WorkOrder](db, actor, id)
	if err != nil {
		return nil, err
	}
	if err := assertRef[models.User](db, actor, userID, "assigned_to_id"); err != nil {
		return nil, err
	}
	if err := assertRef[models.Team](db, actor, teamID, "team_id"); err != nil {
		return nil, err
	}

	wo.AssignedToID = nilIfZero(userID)
	wo.TeamID = nilIfZero(teamID)
	err = db.Model(wo).Updates(map[string]interface{}{
		"assigned_to_id": wo.AssignedToID,
		"team_id":        wo.TeamID,
	}).Error
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventWorkOrderAssigned, wo, "", actor.UserID)
	s.notifyAssignee(ctx, wo)
	return wo, nil
}

// UpdateStatus 按状态机修改工单状态，非法状态或流转返回错误
func (s *WorkOrderService) UpdateStatus(ctx context.Context, actor *Actor, id uint, status, notes string) (*models.WorkOrder, error) {
	var wo *models.WorkOrder
	var from string
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		wo, err = findOwned[models.WorkOrder](tx, actor, id)
		if err != nil {
			return err
		}
		from = wo.Status
		changed, err = ApplyStatusTransition(wo, status, s.now())
		if err != nil {
			return err
		}
		if notes != "" {
			wo.CompletionNotes = notes
		}
		if !changed && notes == "" {
			return nil
		}
		return tx.Model(wo).Updates(map[string]interface{}{
			"status":            wo.Status,
			"actual_start_time": wo.ActualStartTime,
			"actual_end_time":   wo.ActualEndTime,
			"actual_duration":   wo.ActualDuration,
			"completion_notes":  wo.CompletionNotes,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if changed {
		workOrderTransitions.WithLabelValues(wo.Status).Inc()
		logger.GetLogger().WithFields(logrus.Fields{
			"tenant_id":     actor.TenantID,
			"work_order_id": wo.ID,
			"from":          from,
			"to":            wo.Status,
			"actor_id":      actor.UserID,
		}).Info("Work order status changed")
		s.publish(ctx, EventWorkOrderStatusChanged, wo, from, actor.UserID)
	}
	return wo, nil
}

// AddComment 添加评论
func (s *WorkOrderService) AddComment(ctx context.Context, actor *Actor, id uint, text string) (*models.WorkOrderComment, error) {
	db := s.db.WithContext(ctx)
	wo, err := findOwned[models.WorkOrder](db, actor, id)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: 评论不能为空", ErrInvalidInput)
	}
	comment := &models.WorkOrderComment{WorkOrderID: wo.ID, UserID: actor.UserID, Comment: text}
	if err := db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateChecklistItem 勾选或取消检查项
func (s *WorkOrderService) UpdateChecklistItem(ctx context.Context, actor *Actor, id, itemID uint, completed bool, notes string) (*models.WorkOrderChecklist, error) {
	db := s.db.WithContext(ctx)
	wo, err := findOwned[models.WorkOrder](db, actor, id)
	if err != nil {
		return nil, err
	}

	var item models.WorkOrderChecklist
	if err := db.Where("id = ? AND work_order_id = ?", itemID, wo.ID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	item.IsCompleted = completed
	item.Notes = notes
	if completed {
		now := s.now()
		uid := actor.UserID
		item.CompletedAt = &now
		item.CompletedBy = &uid
	} else {
		item.CompletedAt = nil
		item.CompletedBy = nil
	}
	if err := db.Save(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete 删除工单及检查项、评论
func (s *WorkOrderService) Delete(ctx context.Context, actor *Actor, id uint) error {
	var wo *models.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		wo, err = findOwned[models.WorkOrder](tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Where("work_order_id = ?", wo.ID).Delete(&models.WorkOrderChecklist{}).Error; err != nil {
			return err
		}
		if err := tx.Where("work_order_id = ?", wo.ID).Delete(&models.WorkOrderComment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.NotificationLog{}).Where("work_order_id = ?", wo.ID).Update("work_order_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(wo).Error
	})
	if err != nil {
		return err
	}
	s.publish(ctx, EventWorkOrderDeleted, wo, "", actor.UserID)
	return nil
}

// ========== 辅助方法 ==========

func (s *WorkOrderService) publish(ctx context.Context, eventType string, wo *models.WorkOrder, from string, actorID uint) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, WorkOrderEvent{
		Type:        eventType,
		TenantID:    wo.TenantID,
		WorkOrderID: wo.ID,
		Number:      wo.WorkOrderNumber,
		Status:      wo.Status,
		FromStatus:  from,
		ActorID:     actorID,
		At:          s.now(),
	})
}

// notifyAssignee 通知被指派的技术员，失败只记日志
func (s *WorkOrderService) notifyAssignee(ctx context.Context, wo *models.WorkOrder) {
	if s.notifier == nil || wo.AssignedToID == nil {
		return
	}
	id := wo.ID
	msg := Message{
		Subject:     "New work order assigned",
		Content:     fmt.Sprintf("%s: %s (priority: %s)", wo.WorkOrderNumber, wo.Title, wo.Priority),
		WorkOrderID: &id,
	}
	if _, err := s.notifier.NotifyUser(ctx, wo.TenantID, *wo.AssignedToID, msg); err != nil {
		logger.GetLogger().WithField("work_order_id", wo.ID).Errorf("Failed to notify assignee: %v", err)
	}
}

func applyWorkOrder(tx *gorm.DB, actor *Actor, wo *models.WorkOrder, input WorkOrderInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return fmt.Errorf("%w: 标题不能为空", ErrInvalidInput)
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.IsValidPriority(priority) {
		return fmt.Errorf("%w: 无效的优先级 %s", ErrInvalidInput, priority)
	}
	workType := input.WorkType
	if workType == "" {
		workType = models.WorkTypeCorrective
	}
	if !models.IsValidWorkType(workType) {
		return fmt.Errorf("%w: 无效的工单类型 %s", ErrInvalidInput, workType)
	}

	if err := assertRef[models.Equipment](tx, actor, input.EquipmentID, "equipment_id"); err != nil {
		return err
	}
	if err := assertRef[models.Location](tx, actor, input.LocationID, "location_id"); err != nil {
		return err
	}
	if err := assertRef[models.User](tx, actor, input.AssignedToID, "assigned_to_id"); err != nil {
		return err
	}
	if err := assertRef[models.Team](tx, actor, input.TeamID, "team_id"); err != nil {
		return err
	}

	wo.Title = title
	wo.Description = input.Description
	wo.Priority = priority
	wo.WorkType = workType
	wo.EquipmentID = nilIfZero(input.EquipmentID)
	wo.LocationID = nilIfZero(input.LocationID)
	wo.AssignedToID = nilIfZero(input.AssignedToID)
	wo.TeamID = nilIfZero(input.TeamID)
	wo.ScheduledDate = input.ScheduledDate
	wo.DueDate = input.DueDate
	wo.EstimatedDuration = input.EstimatedDuration
	return nil
}

func createChecklist(tx *gorm.DB, wo *models.WorkOrder, items []string) error {
	wo.Checklist = make([]models.WorkOrderChecklist, 0, len(items))
	for i, desc := range items {
		desc = strings.TrimSpace(desc)
		if desc == "" {
			continue
		}
		wo.Checklist = append(wo.Checklist, models.WorkOrderChecklist{
			WorkOrderID: wo.ID,
			Description: desc,
			SortOrder:   i + 1,
		})
	}
	if len(wo.Checklist) == 0 {
		return nil
	}
	return tx.Create(&wo.Checklist).Error
}

func nilIfZero(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
