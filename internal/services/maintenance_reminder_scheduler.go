package services

import (
	"cmms/internal/models"
	"cmms/pkg/logger"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MaintenanceReminderScheduler 定时扫描即将到期的保养计划并通知负责班组，
// 每个到期时间只提醒一次
type MaintenanceReminderScheduler struct {
	db       *gorm.DB
	notifier *NotificationService
	cron     *cron.Cron
	spec     string
	window   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
}

// NewMaintenanceReminderScheduler 创建提醒调度器
func NewMaintenanceReminderScheduler(db *gorm.DB, notifier *NotificationService, spec string, window time.Duration) *MaintenanceReminderScheduler {
	return &MaintenanceReminderScheduler{
		db:       db,
		notifier: notifier,
		cron:     cron.New(),
		spec:     spec,
		window:   window,
		now:      time.Now,
	}
}

// Start 启动调度器
func (s *MaintenanceReminderScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("调度器已经在运行")
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			logger.GetLogger().Errorf("Maintenance reminder run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("无效的cron表达式 %s: %v", s.spec, err)
	}

	s.cron.Start()
	s.running = true
	logger.GetLogger().WithFields(logrus.Fields{
		"spec":   s.spec,
		"window": s.window.String(),
	}).Info("Maintenance reminder scheduler started")
	return nil
}

// Stop 停止调度器，等待正在执行的任务结束
func (s *MaintenanceReminderScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	logger.GetLogger().Info("Maintenance reminder scheduler stopped")
}

// RunOnce 执行一次扫描，返回已提醒的计划数
func (s *MaintenanceReminderScheduler) RunOnce(ctx context.Context) (int, error) {
	db := s.db.WithContext(ctx)
	deadline := s.now().Add(s.window)

	var schedules []models.MaintenanceSchedule
	err := db.Preload("AssignedTeam.Members").Preload("Equipment").
		Where("is_active = ? AND next_due IS NOT NULL AND next_due <= ?", true, deadline).
		Find(&schedules).Error
	if err != nil {
		return 0, fmt.Errorf("加载保养计划失败: %v", err)
	}

	reminded := 0
	for i := range schedules {
		schedule := &schedules[i]
		if schedule.RemindedFor != nil && schedule.RemindedFor.Equal(*schedule.NextDue) {
			continue
		}

		s.remind(ctx, schedule)

		if err := db.Model(schedule).Update("reminded_for", schedule.NextDue).Error; err != nil {
			logger.GetLogger().WithField("schedule_id", schedule.ID).Errorf("Failed to mark reminder: %v", err)
			continue
		}
		reminded++
	}

	if reminded > 0 {
		logger.GetLogger().Infof("Maintenance reminders sent for %d schedules", reminded)
	}
	return reminded, nil
}

func (s *MaintenanceReminderScheduler) remind(ctx context.Context, schedule *models.MaintenanceSchedule) {
	if schedule.AssignedTeam == nil {
		return
	}
	equipment := ""
	if schedule.Equipment != nil {
		equipment = schedule.Equipment.Name
	}
	id := schedule.ID
	msg := Message{
		Subject: "Maintenance due",
		Content: fmt.Sprintf("%s on %s is due at %s",
			schedule.Description, equipment, schedule.NextDue.Format("2006-01-02 15:04")),
		MaintenanceScheduleID: &id,
	}
	for _, member := range schedule.AssignedTeam.Members {
		if member.TenantID != schedule.TenantID {
			continue
		}
		if _, err := s.notifier.NotifyUser(ctx, schedule.TenantID, member.ID, msg); err != nil {
			logger.GetLogger().WithFields(logrus.Fields{
				"schedule_id": schedule.ID,
				"user_id":     member.ID,
			}).Errorf("Failed to send maintenance reminder: %v", err)
		}
	}
}
