package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/services"
	"cmms/pkg/logger"
	"cmms/pkg/response"

	"github.com/gin-gonic/gin"
)

type RenameTenantRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// TenantHandler 当前租户的管理接口，只作用于操作者自己的租户
type TenantHandler struct {
	service *services.TenantService
}

func NewTenantHandler(service *services.TenantService) *TenantHandler {
	return &TenantHandler{service: service}
}

// Get 当前租户
func (h *TenantHandler) Get(c *gin.Context) {
	tenant, err := h.service.Get(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, tenant)
}

// Update 修改租户名称
func (h *TenantHandler) Update(c *gin.Context) {
	var req RenameTenantRequest
	if !bindJSON(c, &req) {
		return
	}

	tenant, err := h.service.Rename(c.Request.Context(), middleware.CurrentActor(c), req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, tenant)
}

// Delete 删除当前租户及其全部数据
func (h *TenantHandler) Delete(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	if err := h.service.Delete(c.Request.Context(), actor); err != nil {
		handleError(c, err)
		return
	}

	logger.ForTenant(actor.TenantID).Warnf("Tenant deleted by user %d", actor.UserID)
	response.SuccessWithMessage(c, "租户已删除", nil)
}
