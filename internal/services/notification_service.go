package services

import (
	"cmms/internal/models"
	"cmms/pkg/logger"
	"cmms/pkg/pagination"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Sender 发送文本消息，返回渠道侧消息ID
type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// Message 一条待发送的通知
type Message struct {
	Subject               string
	Content               string
	WorkOrderID           *uint
	MaintenanceScheduleID *uint
}

const verificationTTL = 10 * time.Minute

type NotificationService struct {
	db     *gorm.DB
	sender Sender
	now    func() time.Time
}

func NewNotificationService(db *gorm.DB, sender Sender) *NotificationService {
	return &NotificationService{db: db, sender: sender, now: time.Now}
}

// NotifyUser 给用户已验证的 WhatsApp 号码发送通知并记录结果。
// 用户未绑定号码时跳过，返回 nil 日志
func (s *NotificationService) NotifyUser(ctx context.Context, tenantID, userID uint, msg Message) (*models.NotificationLog, error) {
	if s == nil {
		return nil, nil
	}
	db := s.db.WithContext(ctx)

	var wa models.WhatsAppUser
	err := db.Where("user_id = ? AND tenant_id = ? AND is_verified = ?", userID, tenantID, true).First(&wa).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	entry := &models.NotificationLog{
		TenantModel:           models.TenantModel{TenantID: tenantID},
		Type:                  models.NotificationTypeWhatsApp,
		RecipientID:           userID,
		Recipient:             wa.PhoneNumber,
		Subject:               msg.Subject,
		Content:               msg.Content,
		Status:                models.NotificationPending,
		WorkOrderID:           msg.WorkOrderID,
		MaintenanceScheduleID: msg.MaintenanceScheduleID,
	}
	if err := db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, s.deliver(ctx, entry)
}

// Retry 重发失败的通知
func (s *NotificationService) Retry(ctx context.Context, actor *Actor, id uint) (*models.NotificationLog, error) {
	entry, err := findOwned[models.NotificationLog](s.db.WithContext(ctx), actor, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.NotificationFailed {
		return nil, fmt.Errorf("%w: 只能重发失败的通知", ErrInvalidInput)
	}
	if err := s.deliver(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// List 通知记录
func (s *NotificationService) List(ctx context.Context, actor *Actor, status string, page *pagination.PageParams) ([]models.NotificationLog, int64, error) {
	var logs []models.NotificationLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.NotificationLog{}).Scopes(TenantScope(actor))
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Scopes(page.Paginate()).Order("id DESC").Find(&logs).Error
	return logs, total, err
}

// deliver 同步调用发送渠道，结果写回日志。发送失败只记录，不作为错误返回
func (s *NotificationService) deliver(ctx context.Context, entry *models.NotificationLog) error {
	body := entry.Content
	if entry.Subject != "" {
		body = "*" + entry.Subject + "*\n" + entry.Content
	}

	var externalID string
	var sendErr error
	if s.sender == nil {
		sendErr = errors.New("WhatsApp 通知未配置")
	} else {
		externalID, sendErr = s.sender.SendText(ctx, entry.Recipient, body)
	}

	updates := map[string]interface{}{}
	if sendErr != nil {
		entry.Status = models.NotificationFailed
		entry.ErrorMessage = sendErr.Error()
		updates["status"] = entry.Status
		updates["error_message"] = entry.ErrorMessage

		logger.GetLogger().WithFields(logrus.Fields{
			"tenant_id":       entry.TenantID,
			"notification_id": entry.ID,
			"recipient_id":    entry.RecipientID,
		}).Warnf("Notification delivery failed: %v", sendErr)
	} else {
		now := s.now()
		entry.Status = models.NotificationSent
		entry.ErrorMessage = ""
		entry.ExternalID = externalID
		entry.SentAt = &now
		updates["status"] = entry.Status
		updates["error_message"] = ""
		updates["external_id"] = externalID
		updates["sent_at"] = now
	}
	notificationsSent.WithLabelValues(entry.Status).Inc()

	return s.db.WithContext(ctx).Model(entry).Updates(updates).Error
}

// ========== WhatsApp 绑定 ==========

// RegisterWhatsApp 为当前用户绑定号码并发送验证码
func (s *NotificationService) RegisterWhatsApp(ctx context.Context, actor *Actor, phone string) (*models.WhatsAppUser, error) {
	phone = normalizePhone(phone)
	if len(phone) < 8 || len(phone) > 16 {
		return nil, fmt.Errorf("%w: 手机号格式不正确", ErrInvalidInput)
	}
	if s.sender == nil {
		return nil, errors.New("WhatsApp 通知未配置")
	}
	code, err := verificationCode()
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(verificationTTL)

	db := s.db.WithContext(ctx)
	var wa models.WhatsAppUser
	err = db.Where("user_id = ?", actor.UserID).First(&wa).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	wa.TenantID = actor.TenantID
	wa.UserID = actor.UserID
	wa.PhoneNumber = phone
	wa.IsVerified = false
	wa.VerifiedAt = nil
	wa.VerificationCode = code
	wa.CodeExpiresAt = &expires
	if err := db.Save(&wa).Error; err != nil {
		return nil, err
	}

	if _, err := s.sender.SendText(ctx, phone, "Your CMMS verification code is "+code); err != nil {
		return nil, fmt.Errorf("发送验证码失败: %w", err)
	}
	return &wa, nil
}

// VerifyWhatsApp 校验验证码
func (s *NotificationService) VerifyWhatsApp(ctx context.Context, actor *Actor, code string) (*models.WhatsAppUser, error) {
	db := s.db.WithContext(ctx)
	var wa models.WhatsAppUser
	if err := db.Where("user_id = ? AND tenant_id = ?", actor.UserID, actor.TenantID).First(&wa).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	now := s.now()
	if wa.VerificationCode == "" || wa.CodeExpiresAt == nil || now.After(*wa.CodeExpiresAt) {
		return nil, fmt.Errorf("%w: 验证码已过期", ErrInvalidInput)
	}
	if strings.TrimSpace(code) != wa.VerificationCode {
		return nil, fmt.Errorf("%w: 验证码错误", ErrInvalidInput)
	}

	wa.IsVerified = true
	wa.VerifiedAt = &now
	wa.VerificationCode = ""
	wa.CodeExpiresAt = nil
	if err := db.Save(&wa).Error; err != nil {
		return nil, err
	}
	return &wa, nil
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
