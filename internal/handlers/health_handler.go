package handlers

import (
	"cmms/internal/database"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	checker *database.HealthChecker
}

func NewHealthHandler(checker *database.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health 依赖健康检查，数据库不可用时返回 503
func (h *HealthHandler) Health(c *gin.Context) {
	status := h.checker.Check(c.Request.Context())
	code := http.StatusOK
	if status.Status == database.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// Ping 存活探针
func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
