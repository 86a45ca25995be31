package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/models"
	"cmms/internal/services"
	"cmms/pkg/jwt"
	"cmms/pkg/logger"
	"cmms/pkg/response"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService       *services.UserService
	tenantService     *services.TenantService
	permissionService *services.PermissionService
	jwtManager        *jwt.Manager
}

func NewAuthHandler(users *services.UserService, tenants *services.TenantService, permissions *services.PermissionService, jwtManager *jwt.Manager) *AuthHandler {
	return &AuthHandler{
		userService:       users,
		tenantService:     tenants,
		permissionService: permissions,
		jwtManager:        jwtManager,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"` // 用户名或邮箱
	Password string `json:"password" binding:"required"`
}

type SignupRequest struct {
	TenantName string `json:"tenant_name" binding:"required,max=255"`
	TenantCode string `json:"tenant_code" binding:"required,max=50"`
	Username   string `json:"username" binding:"required,min=3,max=80"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	FirstName  string `json:"first_name" binding:"required"`
	LastName   string `json:"last_name"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
	User      UserInfo `json:"user"`
}

type UserInfo struct {
	ID                    uint     `json:"id"`
	Username              string   `json:"username"`
	Email                 string   `json:"email"`
	Name                  string   `json:"name"`
	TenantID              uint     `json:"tenant_id"`
	RoleID                *uint    `json:"role_id"`
	Role                  string   `json:"role"`
	PasswordResetRequired bool     `json:"password_reset_required"`
	Permissions           []string `json:"permissions,omitempty"`
}

func userInfo(user *models.User) UserInfo {
	return UserInfo{
		ID:                    user.ID,
		Username:              user.Username,
		Email:                 user.Email,
		Name:                  user.FullName(),
		TenantID:              user.TenantID,
		RoleID:                user.RoleID,
		Role:                  user.RoleLabel,
		PasswordResetRequired: user.PasswordResetRequired,
	}
}

func (h *AuthHandler) issueToken(c *gin.Context, user *models.User) {
	token, err := h.jwtManager.Issue(user.ID, user.TenantID, user.Username)
	if err != nil {
		logger.GetLogger().Errorf("Failed to sign token: %v", err)
		response.ServerError(c, "生成Token失败")
		return
	}

	response.Success(c, LoginResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt.Unix(),
		User:      userInfo(user),
	})
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		logger.GetLogger().WithField("login", req.Username).Infof("Login failed: %v", err)
		handleError(c, err)
		return
	}
	h.issueToken(c, user)
}

// Signup 注册新租户，并创建该租户的管理员
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	tenant, user, err := h.tenantService.Signup(c.Request.Context(), services.SignupInput{
		TenantName: req.TenantName,
		TenantCode: req.TenantCode,
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	logger.ForTenant(tenant.ID).Infof("Tenant %s signed up", tenant.Code)
	h.issueToken(c, user)
}

// Me 当前用户及其有效权限
func (h *AuthHandler) Me(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	user := middleware.CurrentUser(c)

	perms, err := h.permissionService.ActorPermissions(c.Request.Context(), actor)
	if err != nil {
		handleError(c, err)
		return
	}

	info := userInfo(user)
	info.Permissions = perms
	response.Success(c, info)
}

// Refresh 刷新令牌，用户或租户已停用时拒绝
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	refreshed, err := h.jwtManager.Refresh(token, func(claims *jwt.Claims) error {
		_, _, err := h.userService.LoadActor(c.Request.Context(), claims.UserID, claims.TenantID)
		return err
	})
	if err != nil {
		if errors.Is(err, services.ErrUserInactive) || errors.Is(err, services.ErrTenantInactive) {
			response.Unauthorized(c, err.Error())
			return
		}
		response.Unauthorized(c, "Token无效或已过期")
		return
	}

	response.Success(c, gin.H{
		"token":      refreshed.Value,
		"expires_at": refreshed.ExpiresAt.Unix(),
	})
}

// ChangePassword 修改自己的密码
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), middleware.CurrentActor(c), req.OldPassword, req.NewPassword); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "密码已修改", nil)
}
