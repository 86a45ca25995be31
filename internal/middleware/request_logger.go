package middleware

import (
	"cmms/pkg/logger"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID 沿用客户端传入的请求ID，没有则生成
func RequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDHeader)
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header(RequestIDHeader, id)
	return id
}

// requestFields 请求日志的公共字段
func requestFields(c *gin.Context) logrus.Fields {
	fields := logrus.Fields{
		"request_id": RequestID(c),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"client_ip":  c.ClientIP(),
	}
	if actor := CurrentActor(c); actor != nil {
		fields["user_id"] = actor.UserID
		fields["tenant_id"] = actor.TenantID
	}
	return fields
}

// RequestLogger 用 logrus 输出访问日志
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		RequestID(c)
		c.Next()

		fields := requestFields(c)
		fields["status"] = c.Writer.Status()
		fields["latency_ms"] = time.Since(start).Milliseconds()

		entry := logger.GetLogger().WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request completed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request completed")
		default:
			entry.Debug("Request completed")
		}
	}
}
