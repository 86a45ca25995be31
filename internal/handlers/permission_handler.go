package handlers

import (
	"cmms/internal/services"
	"cmms/pkg/response"

	"github.com/gin-gonic/gin"
)

type PermissionHandler struct {
	service *services.PermissionService
}

func NewPermissionHandler(service *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{service: service}
}

// Catalog 全部可分配权限
func (h *PermissionHandler) Catalog(c *gin.Context) {
	response.Success(c, h.service.Catalog())
}
