package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/services"
	"cmms/pkg/pagination"
	"cmms/pkg/response"

	"github.com/gin-gonic/gin"
)

type CreateUserRequest struct {
	Username   string `json:"username" binding:"required,min=3,max=80"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password"` // 为空时走邀请流程，生成临时密码
	FirstName  string `json:"first_name" binding:"required,max=50"`
	LastName   string `json:"last_name" binding:"max=50"`
	Phone      string `json:"phone" binding:"max=20"`
	Department string `json:"department" binding:"max=50"`
	RoleID     uint   `json:"role_id" binding:"required"`
}

type UpdateUserRequest struct {
	Email      *string `json:"email" binding:"omitempty,email"`
	FirstName  *string `json:"first_name" binding:"omitempty,max=50"`
	LastName   *string `json:"last_name" binding:"omitempty,max=50"`
	Phone      *string `json:"phone" binding:"omitempty,max=20"`
	Department *string `json:"department" binding:"omitempty,max=50"`
}

type ChangeRoleRequest struct {
	RoleID uint `json:"role_id" binding:"required"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// ========== 基础CRUD方法 ==========

// Create 创建用户。未提供密码时返回一次性临时密码
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	input := services.UserInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Department: req.Department,
		RoleID:     req.RoleID,
	}
	actor := middleware.CurrentActor(c)

	if req.Password == "" {
		user, tempPassword, err := h.service.Invite(c.Request.Context(), actor, input)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, gin.H{"user": user, "temporary_password": tempPassword})
		return
	}

	user, err := h.service.Create(c.Request.Context(), actor, input)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user})
}

// GetByID 获取用户
func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

// List 用户列表，支持 search / role_id / is_active
func (h *UserHandler) List(c *gin.Context) {
	page := pagination.ParsePageParams(c)
	users, total, err := h.service.List(c.Request.Context(), middleware.CurrentActor(c), services.UserFilter{
		Search:   c.Query("search"),
		RoleID:   queryUint(c, "role_id"),
		IsActive: queryBool(c, "is_active"),
	}, page)
	if err != nil {
		handleError(c, err)
		return
	}
	successPage(c, users, page, total)
}

// Update 更新资料
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), middleware.CurrentActor(c), id, services.ProfileUpdate{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Department: req.Department,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

// Delete 删除用户
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}

// ========== 角色与状态 ==========

// ChangeRole 修改用户角色
func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.ChangeRole(c.Request.Context(), middleware.CurrentActor(c), id, req.RoleID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

// SetActive 启用或禁用用户
func (h *UserHandler) SetActive(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.SetActive(c.Request.Context(), middleware.CurrentActor(c), id, *req.IsActive)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

// ResetPassword 重置密码，返回临时密码
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	tempPassword, err := h.service.ResetPassword(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"temporary_password": tempPassword})
}
