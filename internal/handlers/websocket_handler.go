package handlers

import (
	"cmms/internal/models"
	"cmms/internal/services"
	"cmms/pkg/jwt"
	"cmms/pkg/logger"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 60 * time.Second
	wsPongWait     = 300 * time.Second
)

// WebSocketHandler 工单事件推送
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	log         *logrus.Logger
	jwtManager  *jwt.Manager
	users       *services.UserService
	permissions *services.PermissionService
	hub         *services.WorkOrderHub
}

// NewWebSocketHandler 创建WebSocket处理器，allowedOrigins 与 CORS 配置一致
func NewWebSocketHandler(users *services.UserService, permissions *services.PermissionService, hub *services.WorkOrderHub, jwtManager *jwt.Manager, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 未配置或同源请求
				if origin == "" || len(allowedOrigins) == 0 {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || matchOrigin(origin, allowed) {
						return true
					}
				}
				logger.GetLogger().Warnf("WebSocket connection rejected, origin: %s", origin)
				return false
			},
			ReadBufferSize:  1024 * 4,
			WriteBufferSize: 1024 * 4,
		},
		log:         logger.GetLogger(),
		jwtManager:  jwtManager,
		users:       users,
		permissions: permissions,
		hub:         hub,
	}
}

// WorkOrderEvents 推送操作者所在租户的工单事件
func (h *WebSocketHandler) WorkOrderEvents(c *gin.Context) {
	// 浏览器 WebSocket 不支持自定义 header，令牌走查询参数
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少认证令牌"})
		return
	}

	claims, err := h.jwtManager.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的令牌"})
		return
	}

	actor, _, err := h.users.LoadActor(c.Request.Context(), claims.UserID, claims.TenantID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的令牌"})
		return
	}
	if !h.permissions.HasPermission(c.Request.Context(), actor, models.PermWorkOrderView) {
		c.JSON(http.StatusForbidden, gin.H{"error": "权限不足：需要 " + models.PermWorkOrderView + " 权限"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.log.WithFields(logrus.Fields{
		"user_id":   actor.UserID,
		"tenant_id": actor.TenantID,
	}).Info("WebSocket connection established")

	h.stream(conn, actor)
}

func (h *WebSocketHandler) stream(conn *websocket.Conn, actor *services.Actor) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := h.hub.Subscribe(actor.TenantID)
	defer unsubscribe()

	go h.readPump(conn, cancel)

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.log.WithError(err).WithField("user_id", actor.UserID).Warn("Failed to push work order event")
				return
			}
		}
	}
}

// readPump 处理客户端 ping/pong 和关闭
func (h *WebSocketHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Error("WebSocket unexpected close")
			}
			return
		}
	}
}

// matchOrigin 支持精确匹配和 *.example.com 形式的子域名通配
func matchOrigin(origin, allowed string) bool {
	if origin == allowed {
		return true
	}
	if !strings.HasPrefix(allowed, "*.") {
		return false
	}

	domain := allowed[2:]
	host := origin
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
