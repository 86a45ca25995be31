package response

import (
	"net/http"

	"cmms/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// Body 统一返回格式，code 与 HTTP 状态码一致
type Body struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageBody 列表返回，空列表也输出 data
type PageBody struct {
	Code     int                  `json:"code"`
	Message  string               `json:"message"`
	Data     interface{}          `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

// FieldErrors 参数校验失败时按字段返回的错误
type FieldErrors map[string]string

const okMessage = "success"

// ========== 成功 ==========

func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, okMessage, data)
}

// SuccessWithMessage 成功返回（自定义消息）
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Body{Code: http.StatusOK, Message: message, Data: data})
}

// SuccessWithPage 分页列表
func SuccessWithPage(c *gin.Context, data interface{}, pageInfo *pagination.PageInfo) {
	c.JSON(http.StatusOK, PageBody{
		Code:     http.StatusOK,
		Message:  okMessage,
		Data:     data,
		PageInfo: pageInfo,
	})
}

// ========== 失败 ==========

// Fail 以 status 作为 HTTP 状态码和业务码返回错误
func Fail(c *gin.Context, status int, message string) {
	FailWithData(c, status, message, nil)
}

func FailWithData(c *gin.Context, status int, message string, data interface{}) {
	if status < http.StatusBadRequest || status > 599 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, Body{Code: status, Message: message, Data: data})
}

// Invalid 参数校验失败，fields 为空时只返回消息
func Invalid(c *gin.Context, message string, fields FieldErrors) {
	if len(fields) == 0 {
		Fail(c, http.StatusBadRequest, message)
		return
	}
	FailWithData(c, http.StatusBadRequest, message, gin.H{"fields": fields})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, message)
}

func Conflict(c *gin.Context, message string) {
	Fail(c, http.StatusConflict, message)
}

func ServerError(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, message)
}
