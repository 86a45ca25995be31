package services

import (
	"cmms/internal/models"
	"cmms/pkg/logger"
	"cmms/pkg/pagination"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const day = 24 * time.Hour

// 频率单位对应的天数，月按30天、年按365天近似
var frequencyDays = map[string]time.Duration{
	models.FrequencyDaily:   day,
	models.FrequencyWeekly:  7 * day,
	models.FrequencyMonthly: 30 * day,
	models.FrequencyYearly:  365 * day,
}

// NextDueInterval 计算两次保养之间的间隔
func NextDueInterval(frequency string, value int) (time.Duration, error) {
	unit, ok := frequencyDays[frequency]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidFrequency, frequency)
	}
	if value < 1 {
		return 0, fmt.Errorf("%w: 频率值必须大于0", ErrInvalidFrequency)
	}
	return time.Duration(value) * unit, nil
}

// AdvanceSchedule 记录本次执行并把下次到期时间顺延一个周期。next_due 为空时只记录执行时间
func AdvanceSchedule(schedule *models.MaintenanceSchedule, now time.Time) error {
	interval, err := NextDueInterval(schedule.Frequency, schedule.FrequencyValue)
	if err != nil {
		return err
	}
	performed := now
	schedule.LastPerformed = &performed
	if schedule.NextDue != nil {
		next := schedule.NextDue.Add(interval)
		schedule.NextDue = &next
	}
	return nil
}

type MaintenanceScheduleService struct {
	db        *gorm.DB
	store     *ScopedStore[models.MaintenanceSchedule, *models.MaintenanceSchedule]
	publisher EventPublisher
	now       func() time.Time
}

func NewMaintenanceScheduleService(db *gorm.DB, publisher EventPublisher) *MaintenanceScheduleService {
	return &MaintenanceScheduleService{
		db:        db,
		store:     NewScopedStore[models.MaintenanceSchedule](db, "next_due", "description"),
		publisher: publisher,
		now:       time.Now,
	}
}

// ScheduleInput 保养计划参数
type ScheduleInput struct {
	EquipmentID       uint
	Frequency         string
	FrequencyValue    int
	Description       string
	EstimatedDuration int
	IsActive          *bool
	NextDue           *time.Time
	SOPID             *uint
	AssignedTeamID    *uint
}

// ScheduleFilter 保养计划筛选
type ScheduleFilter struct {
	EquipmentID uint
	IsActive    *bool
	DueBefore   *time.Time
}

// Create 创建保养计划，未给出 next_due 时从当前时间起算一个周期
func (s *MaintenanceScheduleService) Create(ctx context.Context, actor *Actor, input ScheduleInput) (*models.MaintenanceSchedule, error) {
	schedule := &models.MaintenanceSchedule{IsActive: true}
	if err := s.apply(ctx, actor, schedule, input); err != nil {
		return nil, err
	}
	if schedule.NextDue == nil {
		interval, _ := NextDueInterval(schedule.Frequency, schedule.FrequencyValue)
		next := s.now().Add(interval)
		schedule.NextDue = &next
	}
	if err := s.store.Create(ctx, actor, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// GetByID 获取保养计划
func (s *MaintenanceScheduleService) GetByID(ctx context.Context, actor *Actor, id uint) (*models.MaintenanceSchedule, error) {
	return s.store.Get(ctx, actor, id, "Equipment", "SOP", "AssignedTeam")
}

// List 保养计划列表，按下次到期时间排序
func (s *MaintenanceScheduleService) List(ctx context.Context, actor *Actor, filter ScheduleFilter, page *pagination.PageParams) ([]models.MaintenanceSchedule, int64, error) {
	return s.store.List(ctx, actor, "", page, func(db *gorm.DB) *gorm.DB {
		if filter.EquipmentID != 0 {
			db = db.Where("equipment_id = ?", filter.EquipmentID)
		}
		if filter.IsActive != nil {
			db = db.Where("is_active = ?", *filter.IsActive)
		}
		if filter.DueBefore != nil {
			db = db.Where("next_due <= ?", *filter.DueBefore)
		}
		return db.Preload("Equipment")
	})
}

// Update 更新保养计划
func (s *MaintenanceScheduleService) Update(ctx context.Context, actor *Actor, id uint, input ScheduleInput) (*models.MaintenanceSchedule, error) {
	schedule, err := s.store.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, actor, schedule, input); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, actor, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Delete 删除保养计划
func (s *MaintenanceScheduleService) Delete(ctx context.Context, actor *Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedule, err := findOwned[models.MaintenanceSchedule](tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.NotificationLog{}).Where("maintenance_schedule_id = ?", schedule.ID).
			Update("maintenance_schedule_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(schedule).Error
	})
}

// CompleteOccurrence 完成一次保养。spawnWorkOrder 为 true 时为本次（顺延前的 next_due）生成预防性工单，
// 工单和计划顺延在同一事务内
func (s *MaintenanceScheduleService) CompleteOccurrence(ctx context.Context, actor *Actor, id uint, spawnWorkOrder bool) (*models.MaintenanceSchedule, *models.WorkOrder, error) {
	var schedule *models.MaintenanceSchedule
	var wo *models.WorkOrder
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		schedule, err = findOwned[models.MaintenanceSchedule](tx, actor, id)
		if err != nil {
			return err
		}
		previousDue := schedule.NextDue

		if spawnWorkOrder {
			wo, err = s.spawnWorkOrder(tx, actor, schedule, previousDue, now)
			if err != nil {
				return err
			}
		}

		if err := AdvanceSchedule(schedule, now); err != nil {
			return err
		}
		if err := tx.Model(&models.Equipment{}).Where("id = ?", schedule.EquipmentID).
			Update("last_maintenance_date", now).Error; err != nil {
			return err
		}
		return tx.Model(schedule).Updates(map[string]interface{}{
			"last_performed": schedule.LastPerformed,
			"next_due":       schedule.NextDue,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"tenant_id":   actor.TenantID,
		"schedule_id": schedule.ID,
		"spawned":     wo != nil,
		"next_due":    schedule.NextDue,
	}).Info("Maintenance occurrence completed")

	if wo != nil && s.publisher != nil {
		s.publisher.Publish(ctx, WorkOrderEvent{
			Type:        EventWorkOrderCreated,
			TenantID:    wo.TenantID,
			WorkOrderID: wo.ID,
			Number:      wo.WorkOrderNumber,
			Status:      wo.Status,
			ActorID:     actor.UserID,
			At:          now,
		})
	}
	return schedule, wo, nil
}

// Upcoming 指定时间范围内到期的启用计划
func (s *MaintenanceScheduleService) Upcoming(ctx context.Context, actor *Actor, within time.Duration) ([]models.MaintenanceSchedule, error) {
	var schedules []models.MaintenanceSchedule
	err := s.db.WithContext(ctx).Scopes(TenantScope(actor)).
		Where("is_active = ? AND next_due IS NOT NULL AND next_due <= ?", true, s.now().Add(within)).
		Preload("Equipment").Order("next_due").Find(&schedules).Error
	return schedules, err
}

// spawnWorkOrder 按计划生成预防性工单，检查项复制自 SOP，指派给班组第一个成员
func (s *MaintenanceScheduleService) spawnWorkOrder(tx *gorm.DB, actor *Actor, schedule *models.MaintenanceSchedule, due *time.Time, now time.Time) (*models.WorkOrder, error) {
	equipmentID := schedule.EquipmentID
	wo := &models.WorkOrder{
		TenantModel:       models.TenantModel{TenantID: schedule.TenantID},
		WorkOrderNumber:   GenerateWorkOrderNumber(now),
		Title:             "PM: " + schedule.Description,
		Description:       fmt.Sprintf("Preventive maintenance: %s", schedule.Description),
		Priority:          models.PriorityMedium,
		Status:            models.WorkOrderOpen,
		WorkType:          models.WorkTypePreventive,
		EquipmentID:       &equipmentID,
		TeamID:            nilIfZero(schedule.AssignedTeamID),
		CreatedByID:       actor.UserID,
		EstimatedDuration: schedule.EstimatedDuration,
	}
	if due != nil {
		scheduled := *due
		dueDate := due.Add(2 * time.Hour)
		wo.ScheduledDate = &scheduled
		wo.DueDate = &dueDate
	}

	if schedule.AssignedTeamID != nil {
		var team models.Team
		if err := tx.Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("users.id")
		}).First(&team, *schedule.AssignedTeamID).Error; err == nil && len(team.Members) > 0 {
			first := team.Members[0].ID
			wo.AssignedToID = &first
		}
	}

	if err := tx.Omit("Checklist", "Comments").Create(wo).Error; err != nil {
		return nil, err
	}

	if schedule.SOPID != nil {
		var items []models.SOPChecklistItem
		if err := tx.Scopes(orderedItems).Where("sop_id = ?", *schedule.SOPID).Find(&items).Error; err != nil {
			return nil, err
		}
		descs := make([]string, 0, len(items))
		for _, item := range items {
			descs = append(descs, item.Description)
		}
		if err := createChecklist(tx, wo, descs); err != nil {
			return nil, err
		}
	}
	return wo, nil
}

func (s *MaintenanceScheduleService) apply(ctx context.Context, actor *Actor, schedule *models.MaintenanceSchedule, input ScheduleInput) error {
	desc := strings.TrimSpace(input.Description)
	if desc == "" {
		return fmt.Errorf("%w: 描述不能为空", ErrInvalidInput)
	}
	value := input.FrequencyValue
	if value == 0 {
		value = 1
	}
	if _, err := NextDueInterval(input.Frequency, value); err != nil {
		return err
	}
	if input.EquipmentID == 0 {
		return fmt.Errorf("%w: 必须指定设备", ErrInvalidInput)
	}

	db := s.db.WithContext(ctx)
	equipmentID := input.EquipmentID
	if err := assertRef[models.Equipment](db, actor, &equipmentID, "equipment_id"); err != nil {
		return err
	}
	if err := assertRef[models.SOP](db, actor, input.SOPID, "sop_id"); err != nil {
		return err
	}
	if err := assertRef[models.Team](db, actor, input.AssignedTeamID, "assigned_team_id"); err != nil {
		return err
	}

	schedule.EquipmentID = equipmentID
	schedule.Frequency = input.Frequency
	schedule.FrequencyValue = value
	schedule.Description = desc
	schedule.EstimatedDuration = input.EstimatedDuration
	schedule.SOPID = nilIfZero(input.SOPID)
	schedule.AssignedTeamID = nilIfZero(input.AssignedTeamID)
	if input.IsActive != nil {
		schedule.IsActive = *input.IsActive
	}
	if input.NextDue != nil {
		next := *input.NextDue
		schedule.NextDue = &next
	}
	return nil
}
