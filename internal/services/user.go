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
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var validate = validator.New()

type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, now: time.Now}
}

// UserInput 创建用户参数
type UserInput struct {
	Username   string
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Phone      string
	Department string
	RoleID     uint
}

// ProfileUpdate 资料更新，nil 字段不修改
type ProfileUpdate struct {
	Email      *string
	FirstName  *string
	LastName   *string
	Phone      *string
	Department *string
}

// UserFilter 用户列表筛选
type UserFilter struct {
	Search   string
	RoleID   uint
	IsActive *bool
}

// ========== 基础CRUD方法 ==========

// Create 管理员创建用户
func (s *UserService) Create(ctx context.Context, actor *Actor, input UserInput) (*models.User, error) {
	if err := validateCredentials(input.Username, input.Email, input.Password); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, input, false)
}

// Invite 邀请用户，生成临时密码并要求首次登录后修改
func (s *UserService) Invite(ctx context.Context, actor *Actor, input UserInput) (*models.User, string, error) {
	input.Password = temporaryPassword()
	if err := validateCredentials(input.Username, input.Email, input.Password); err != nil {
		return nil, "", err
	}
	user, err := s.create(ctx, actor, input, true)
	if err != nil {
		return nil, "", err
	}
	return user, input.Password, nil
}

func (s *UserService) create(ctx context.Context, actor *Actor, input UserInput, resetRequired bool) (*models.User, error) {
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, fmt.Errorf("%w: 名字不能为空", ErrInvalidInput)
	}

	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := activeRole(tx, actor, input.RoleID)
		if err != nil {
			return err
		}
		if err := ensureUniqueLogin(tx, input.Username, input.Email, 0); err != nil {
			return err
		}

		user = &models.User{
			TenantModel:           models.TenantModel{TenantID: actor.TenantID},
			Username:              strings.TrimSpace(input.Username),
			Email:                 strings.ToLower(strings.TrimSpace(input.Email)),
			FirstName:             strings.TrimSpace(input.FirstName),
			LastName:              strings.TrimSpace(input.LastName),
			Phone:                 input.Phone,
			Department:            input.Department,
			IsActive:              true,
			PasswordResetRequired: resetRequired,
		}
		user.BindRole(role)
		if err := user.SetPassword(input.Password); err != nil {
			return fmt.Errorf("密码加密失败: %v", err)
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"tenant_id": actor.TenantID,
		"user_id":   user.ID,
		"role":      user.RoleLabel,
		"invited":   resetRequired,
	}).Info("User created")
	return user, nil
}

// GetByID 根据ID获取用户
func (s *UserService) GetByID(ctx context.Context, actor *Actor, id uint) (*models.User, error) {
	return findOwned[models.User](s.db.WithContext(ctx), actor, id, "Role")
}

// List 分页获取租户用户
func (s *UserService) List(ctx context.Context, actor *Actor, filter UserFilter, page *pagination.PageParams) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := s.db.WithContext(ctx).Model(&models.User{}).Scopes(TenantScope(actor))
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like, like)
	}
	if filter.RoleID != 0 {
		query = query.Where("role_id = ?", filter.RoleID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Role").Scopes(page.Paginate()).Order("id").Find(&users).Error
	return users, total, err
}

// UpdateProfile 更新用户资料
func (s *UserService) UpdateProfile(ctx context.Context, actor *Actor, id uint, input ProfileUpdate) (*models.User, error) {
	db := s.db.WithContext(ctx)
	user, err := findOwned[models.User](db, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if validate.Var(email, "required,email") != nil {
			return nil, fmt.Errorf("%w: 邮箱格式不正确", ErrInvalidInput)
		}
		if email != user.Email {
			if err := ensureUniqueLogin(db, "", email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if input.FirstName != nil {
		if strings.TrimSpace(*input.FirstName) == "" {
			return nil, fmt.Errorf("%w: 名字不能为空", ErrInvalidInput)
		}
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.Department != nil {
		user.Department = *input.Department
	}

	if err := db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// ========== 角色与状态 ==========

// ChangeRole 修改用户角色，role_id 与冗余角色名同时写入
func (s *UserService) ChangeRole(ctx context.Context, actor *Actor, id, roleID uint) (*models.User, error) {
	if actor.UserID == id {
		return nil, ErrSelfAction
	}

	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = findOwned[models.User](tx, actor, id)
		if err != nil {
			return err
		}
		role, err := activeRole(tx, actor, roleID)
		if err != nil {
			return err
		}
		if role.Name != models.RoleAdmin {
			if err := ensureNotLastAdmin(tx, user); err != nil {
				return err
			}
		}

		user.BindRole(role)
		user.Role = role
		return tx.Model(user).Updates(map[string]interface{}{
			"role_id": user.RoleID,
			"role":    user.RoleLabel,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"tenant_id": actor.TenantID,
		"user_id":   id,
		"role":      user.RoleLabel,
		"actor_id":  actor.UserID,
	}).Info("User role changed")
	return user, nil
}

// SetActive 启用或停用用户
func (s *UserService) SetActive(ctx context.Context, actor *Actor, id uint, active bool) (*models.User, error) {
	if actor.UserID == id && !active {
		return nil, ErrSelfAction
	}

	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = findOwned[models.User](tx, actor, id)
		if err != nil {
			return err
		}
		if !active {
			if err := ensureNotLastAdmin(tx, user); err != nil {
				return err
			}
		}
		user.IsActive = active
		return tx.Model(user).Update("is_active", active).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ========== 密码 ==========

// ResetPassword 管理员重置密码，返回临时密码
func (s *UserService) ResetPassword(ctx context.Context, actor *Actor, id uint) (string, error) {
	db := s.db.WithContext(ctx)
	user, err := findOwned[models.User](db, actor, id)
	if err != nil {
		return "", err
	}

	password := temporaryPassword()
	if err := user.SetPassword(password); err != nil {
		return "", err
	}
	err = db.Model(user).Updates(map[string]interface{}{
		"password_hash":           user.PasswordHash,
		"password_reset_required": true,
	}).Error
	if err != nil {
		return "", err
	}
	return password, nil
}

// ChangePassword 用户修改自己的密码
func (s *UserService) ChangePassword(ctx context.Context, actor *Actor, oldPassword, newPassword string) error {
	db := s.db.WithContext(ctx)
	user, err := findOwned[models.User](db, actor, actor.UserID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(oldPassword) {
		return ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	return db.Model(user).Updates(map[string]interface{}{
		"password_hash":           user.PasswordHash,
		"password_reset_required": false,
	}).Error
}

// Delete 删除用户及其个人数据，工单改为未指派
func (s *UserService) Delete(ctx context.Context, actor *Actor, id uint) error {
	if actor.UserID == id {
		return ErrSelfAction
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := findOwned[models.User](tx, actor, id)
		if err != nil {
			return err
		}
		if err := ensureNotLastAdmin(tx, user); err != nil {
			return err
		}

		if err := tx.Exec("DELETE FROM team_members WHERE user_id = ?", user.ID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.WorkOrder{}).Where("assigned_to_id = ?", user.ID).Update("assigned_to_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Team{}).Where("leader_id = ?", user.ID).Update("leader_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.WhatsAppUser{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipient_id = ?", user.ID).Delete(&models.NotificationLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
}

// ========== 认证 ==========

// Authenticate 用户名或邮箱登录
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	db := s.db.WithContext(ctx)
	login = strings.TrimSpace(login)

	var user models.User
	err := db.Preload("Role").Where("username = ? OR email = ?", login, strings.ToLower(login)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if err := ensureTenantActive(db, user.TenantID); err != nil {
		return nil, err
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := db.Model(&user).Update("last_login_at", now).Error; err != nil {
		logger.GetLogger().WithField("user_id", user.ID).Warnf("Failed to update last login: %v", err)
	}
	return &user, nil
}

// LoadActor 根据令牌中的用户和租户构造操作者
func (s *UserService) LoadActor(ctx context.Context, userID, tenantID uint) (*Actor, *models.User, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if user.TenantID != tenantID {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}
	if err := ensureTenantActive(db, user.TenantID); err != nil {
		return nil, nil, err
	}

	return &Actor{
		UserID:   user.ID,
		TenantID: user.TenantID,
		RoleID:   user.RoleID,
		Username: user.Username,
	}, &user, nil
}

// BackfillRoleIDs 为只有旧角色名、没有 role_id 的用户补齐角色关联。
// 按同租户同名角色匹配，找不到时绑定 viewer。返回更新的用户数
func (s *UserService) BackfillRoleIDs(ctx context.Context) (int, error) {
	updated := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users []models.User
		if err := tx.Where("role_id IS NULL").Find(&users).Error; err != nil {
			return err
		}
		for i := range users {
			user := &users[i]
			var role models.Role
			err := tx.Where("tenant_id = ? AND name = ?", user.TenantID, strings.ToLower(user.RoleLabel)).First(&role).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = tx.Where("tenant_id = ? AND name = ?", user.TenantID, models.RoleViewer).First(&role).Error
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.GetLogger().WithField("user_id", user.ID).Warn("No role to link legacy user to")
				continue
			}
			if err != nil {
				return err
			}

			user.BindRole(&role)
			if err := tx.Model(user).Updates(map[string]interface{}{
				"role_id": user.RoleID,
				"role":    user.RoleLabel,
			}).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	return updated, err
}

// ========== 辅助方法 ==========

// activeRole 加载操作者租户内的启用角色
func activeRole(tx *gorm.DB, actor *Actor, roleID uint) (*models.Role, error) {
	if roleID == 0 {
		return nil, fmt.Errorf("%w: 必须指定角色", ErrInvalidInput)
	}
	role, err := findOwned[models.Role](tx, actor, roleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: 角色不存在", ErrInvalidInput)
		}
		return nil, err
	}
	if !role.IsActive {
		return nil, fmt.Errorf("%w: 角色已停用", ErrInvalidInput)
	}
	return role, nil
}

// isAdmin 通过 role_id 判断用户是否为管理员
func isAdmin(tx *gorm.DB, user *models.User) (bool, error) {
	if user.RoleID == nil {
		return false, nil
	}
	var count int64
	err := tx.Model(&models.Role{}).Where("id = ? AND name = ?", *user.RoleID, models.RoleAdmin).Count(&count).Error
	return count > 0, err
}

// ensureNotLastAdmin 用户是启用的管理员且是租户内最后一个时拒绝
func ensureNotLastAdmin(tx *gorm.DB, user *models.User) error {
	if !user.IsActive {
		return nil
	}
	admin, err := isAdmin(tx, user)
	if err != nil || !admin {
		return err
	}

	var others int64
	err = tx.Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.tenant_id = ? AND users.is_active = ? AND roles.name = ? AND users.id <> ?",
			user.TenantID, true, models.RoleAdmin, user.ID).
		Count(&others).Error
	if err != nil {
		return err
	}
	if others == 0 {
		return ErrLastAdmin
	}
	return nil
}

func ensureTenantActive(db *gorm.DB, tenantID uint) error {
	var tenant models.Tenant
	if err := db.Select("id", "status").First(&tenant, tenantID).Error; err != nil {
		return err
	}
	if !tenant.IsActive() {
		return ErrTenantInactive
	}
	return nil
}

// ensureUniqueLogin 用户名和邮箱全局唯一，空值跳过
func ensureUniqueLogin(db *gorm.DB, username, email string, excludeID uint) error {
	check := func(column, value, msg string) error {
		if value == "" {
			return nil
		}
		var count int64
		query := db.Model(&models.User{}).Where(column+" = ?", value)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrConflict, msg)
		}
		return nil
	}
	if err := check("username", strings.TrimSpace(username), "用户名已存在"); err != nil {
		return err
	}
	return check("email", strings.ToLower(strings.TrimSpace(email)), "邮箱已存在")
}

func validateCredentials(username, email, password string) error {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 80 {
		return fmt.Errorf("%w: 用户名长度必须在3-80个字符之间", ErrInvalidInput)
	}
	if validate.Var(strings.TrimSpace(email), "required,email") != nil {
		return fmt.Errorf("%w: 邮箱格式不正确", ErrInvalidInput)
	}
	return validatePassword(password)
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: 密码长度不能少于8位", ErrInvalidInput)
	}
	return nil
}

// temporaryPassword 邀请和重置使用的一次性密码
func temporaryPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
