package middleware

import (
	"cmms/internal/models"
	"cmms/internal/services"
	"cmms/pkg/jwt"
	"cmms/pkg/logger"
	"cmms/pkg/response"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	actorKey = "actor"
	userKey  = "user"
)

// AuthMiddleware 认证与权限中间件
type AuthMiddleware struct {
	userService       *services.UserService
	permissionService *services.PermissionService
	jwtManager        *jwt.Manager
}

func NewAuthMiddleware(users *services.UserService, permissions *services.PermissionService, jwtManager *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{
		userService:       users,
		permissionService: permissions,
		jwtManager:        jwtManager,
	}
}

// RequireLogin 校验 Bearer 令牌，构造操作者放入上下文
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(c, "认证头格式错误")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			response.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		actor, user, err := m.userService.LoadActor(c.Request.Context(), claims.UserID, claims.TenantID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUserInactive):
				response.Unauthorized(c, "用户已被禁用")
			case errors.Is(err, services.ErrTenantInactive):
				response.Unauthorized(c, "租户已停用")
			case errors.Is(err, services.ErrInvalidCredentials):
				response.Unauthorized(c, "用户不存在")
			default:
				logger.GetLogger().Errorf("Failed to load actor: %v", err)
				response.ServerError(c, "服务器内部错误")
			}
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Set(userKey, user)
		c.Next()
	}
}

// RequirePermission 要求特定权限，必须在 RequireLogin 之后
func (m *AuthMiddleware) RequirePermission(permissionCode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		if actor == nil {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if !m.permissionService.HasPermission(c.Request.Context(), actor, permissionCode) {
			logger.GetLogger().WithFields(logrus.Fields{
				"user_id":    actor.UserID,
				"tenant_id":  actor.TenantID,
				"permission": permissionCode,
				"path":       c.FullPath(),
			}).Info("Permission denied")
			response.Forbidden(c, "权限不足：需要 "+permissionCode+" 权限")
			c.Abort()
			return
		}

		c.Next()
	}
}

// CombineMiddleware 组合中间件（登录 + 权限）
func (m *AuthMiddleware) CombineMiddleware(permissionCode string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.RequireLogin(),
		m.RequirePermission(permissionCode),
	}
}

// CurrentActor 当前请求的操作者，未登录时为 nil
func CurrentActor(c *gin.Context) *services.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*services.Actor)
	return actor
}

// CurrentUser 当前登录用户
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
