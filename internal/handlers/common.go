package handlers

import (
	"cmms/internal/services"
	"cmms/pkg/logger"
	"cmms/pkg/pagination"
	"cmms/pkg/response"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// parseID 解析路径中的ID参数，失败时已写入响应
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "ID格式错误")
		return 0, false
	}
	return uint(id), true
}

// bindJSON 绑定请求体，校验失败时返回字段级错误信息
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fields := fieldErrors(err)
		if len(fields) == 0 {
			response.BadRequest(c, "请求参数错误: "+err.Error())
			return false
		}
		msgs := make([]string, 0, len(fields))
		for _, msg := range fields {
			msgs = append(msgs, msg)
		}
		sort.Strings(msgs)
		response.Invalid(c, "请求参数错误: "+strings.Join(msgs, "; "), fields)
		return false
	}
	return true
}

func fieldErrors(err error) response.FieldErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(response.FieldErrors, len(verrs))
	for _, fe := range verrs {
		field := toSnake(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[field] = field + " 不能为空"
		case "email":
			fields[field] = field + " 格式不正确"
		case "min", "max", "len":
			fields[field] = fmt.Sprintf("%s 长度或数值不符合要求(%s=%s)", field, fe.Tag(), fe.Param())
		case "oneof":
			fields[field] = fmt.Sprintf("%s 必须是 [%s] 之一", field, fe.Param())
		default:
			fields[field] = field + " 校验失败: " + fe.Tag()
		}
	}
	return fields
}

func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// handleError 把服务层错误映射为HTTP响应。
// 越权访问统一返回 403 且不带任何对方租户信息；未知错误只记日志
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		response.NotFound(c, "资源不存在")
	case errors.Is(err, services.ErrCrossTenantAccess), errors.Is(err, services.ErrPermissionDenied):
		response.Forbidden(c, "无权访问该资源")
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrDuplicateRole):
		response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Unauthorized(c, "用户名或密码错误")
	case errors.Is(err, services.ErrUserInactive), errors.Is(err, services.ErrTenantInactive):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrImmutableRole),
		errors.Is(err, services.ErrReassignmentRequired),
		errors.Is(err, services.ErrInvalidReassignment),
		errors.Is(err, services.ErrUnknownPermission),
		errors.Is(err, services.ErrLastAdmin),
		errors.Is(err, services.ErrSelfAction),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidFrequency):
		response.BadRequest(c, err.Error())
	default:
		logger.GetLogger().WithField("path", c.FullPath()).Errorf("Request failed: %v", err)
		response.ServerError(c, "服务器内部错误")
	}
}

// queryBool 解析可选布尔查询参数
func queryBool(c *gin.Context, name string) *bool {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func queryUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

func successPage(c *gin.Context, data interface{}, page *pagination.PageParams, total int64) {
	response.SuccessWithPage(c, data, page.Info(total))
}
