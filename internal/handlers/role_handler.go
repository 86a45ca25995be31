package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/services"
	"cmms/pkg/pagination"
	"cmms/pkg/response"

	"github.com/gin-gonic/gin"
)

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required,max=50"`
	DisplayName string   `json:"display_name" binding:"required,max=100"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type UpdateRoleRequest struct {
	Name        *string   `json:"name" binding:"omitempty,max=50"`
	DisplayName *string   `json:"display_name" binding:"omitempty,max=100"`
	Description *string   `json:"description"`
	Permissions *[]string `json:"permissions"`
	IsActive    *bool     `json:"is_active"`
}

type DeleteRoleRequest struct {
	ReassignTo *uint `json:"reassign_to"`
}

type RoleHandler struct {
	service *services.RoleService
}

func NewRoleHandler(service *services.RoleService) *RoleHandler {
	return &RoleHandler{
		service: service,
	}
}

// ========== 基础CRUD方法 ==========

// Create 创建自定义角色
func (h *RoleHandler) Create(c *gin.Context) {
	var req CreateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.service.CreateCustom(c.Request.Context(), middleware.CurrentActor(c), services.RoleInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, role)
}

// GetByID 获取角色
func (h *RoleHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	role, err := h.service.GetByID(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, role)
}

// List 角色列表
func (h *RoleHandler) List(c *gin.Context) {
	page := pagination.ParsePageParams(c)
	roles, total, err := h.service.List(c.Request.Context(), middleware.CurrentActor(c), queryBool(c, "is_active"), page)
	if err != nil {
		handleError(c, err)
		return
	}
	successPage(c, roles, page, total)
}

// Update 更新角色，系统角色不可修改
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.service.Update(c.Request.Context(), middleware.CurrentActor(c), id, services.RoleUpdate{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Permissions: req.Permissions,
		IsActive:    req.IsActive,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, role)
}

// Delete 删除角色。仍有用户时必须指定 reassign_to
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req DeleteRoleRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	if req.ReassignTo == nil {
		if v := queryUint(c, "reassign_to"); v != 0 {
			req.ReassignTo = &v
		}
	}

	if err := h.service.Delete(c.Request.Context(), middleware.CurrentActor(c), id, req.ReassignTo); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}

// UserCount 角色下的用户数
func (h *RoleHandler) UserCount(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	count, err := h.service.CountUsers(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"role_id": id, "user_count": count})
}
