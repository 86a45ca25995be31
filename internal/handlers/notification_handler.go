package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/services"
	"cmms/pkg/pagination"
	"cmms/pkg/response"

	"github.com/gin-gonic/gin"
)

type RegisterWhatsAppRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type VerifyWhatsAppRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

type NotificationHandler struct {
	service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List 通知发送记录，可按 status 筛选
func (h *NotificationHandler) List(c *gin.Context) {
	page := pagination.ParsePageParams(c)
	logs, total, err := h.service.List(c.Request.Context(), middleware.CurrentActor(c), c.Query("status"), page)
	if err != nil {
		handleError(c, err)
		return
	}
	successPage(c, logs, page, total)
}

// Retry 重发失败的通知
func (h *NotificationHandler) Retry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entry, err := h.service.Retry(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, entry)
}

// ========== WhatsApp 绑定 ==========

// RegisterWhatsApp 绑定当前用户的 WhatsApp 号码
func (h *NotificationHandler) RegisterWhatsApp(c *gin.Context) {
	var req RegisterWhatsAppRequest
	if !bindJSON(c, &req) {
		return
	}

	wa, err := h.service.RegisterWhatsApp(c.Request.Context(), middleware.CurrentActor(c), req.PhoneNumber)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "验证码已发送", wa)
}

// VerifyWhatsApp 提交验证码
func (h *NotificationHandler) VerifyWhatsApp(c *gin.Context) {
	var req VerifyWhatsAppRequest
	if !bindJSON(c, &req) {
		return
	}

	wa, err := h.service.VerifyWhatsApp(c.Request.Context(), middleware.CurrentActor(c), req.Code)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, wa)
}
