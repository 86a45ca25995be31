package middleware

import (
	"cmms/pkg/logger"
	"cmms/pkg/response"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// ErrorHandler 捕获 panic，记录堆栈后返回 500。响应已写出时只记录日志
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := requestFields(c)
			fields["stack"] = string(debug.Stack())
			logger.GetLogger().WithFields(fields).Errorf("Panic recovered: %v", rec)

			if !c.Writer.Written() {
				response.ServerError(c, "服务器内部错误")
			}
			c.Abort()
		}()

		c.Next()
	}
}
