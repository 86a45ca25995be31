package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/services"
	"cmms/pkg/pagination"
	"cmms/pkg/response"

	"github.com/gin-gonic/gin"
)

type TeamRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	LeaderID    *uint  `json:"leader_id"`
	IsActive    *bool  `json:"is_active"`
	MemberIDs   []uint `json:"member_ids"`
}

type TeamMembersRequest struct {
	UserIDs []uint `json:"user_ids"`
}

type TeamHandler struct {
	service *services.TeamService
}

func NewTeamHandler(service *services.TeamService) *TeamHandler {
	return &TeamHandler{service: service}
}

func (r TeamRequest) input() services.TeamInput {
	return services.TeamInput{
		Name:        r.Name,
		Description: r.Description,
		LeaderID:    r.LeaderID,
		IsActive:    r.IsActive,
		MemberIDs:   r.MemberIDs,
	}
}

// Create 创建班组
func (h *TeamHandler) Create(c *gin.Context) {
	var req TeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.service.Create(c.Request.Context(), middleware.CurrentActor(c), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, team)
}

// GetByID 获取班组及成员
func (h *TeamHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	team, err := h.service.GetByID(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, team)
}

func (h *TeamHandler) List(c *gin.Context) {
	page := pagination.ParsePageParams(c)
	teams, total, err := h.service.List(c.Request.Context(), middleware.CurrentActor(c), c.Query("search"), page)
	if err != nil {
		handleError(c, err)
		return
	}
	successPage(c, teams, page, total)
}

// Update 更新班组，member_ids 为空时不修改成员
func (h *TeamHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req TeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.service.Update(c.Request.Context(), middleware.CurrentActor(c), id, req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, team)
}

// SetMembers 替换成员
func (h *TeamHandler) SetMembers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req TeamMembersRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.service.SetMembers(c.Request.Context(), middleware.CurrentActor(c), id, req.UserIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, team)
}

func (h *TeamHandler) Delete(c *gin.Context) {
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
