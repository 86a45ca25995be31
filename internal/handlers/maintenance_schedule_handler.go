package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/services"
	"cmms/pkg/pagination"
	"cmms/pkg/response"
	"time"

	"github.com/gin-gonic/gin"
)

type ScheduleRequest struct {
	EquipmentID       uint       `json:"equipment_id" binding:"required"`
	Frequency         string     `json:"frequency" binding:"required"`
	FrequencyValue    int        `json:"frequency_value" binding:"min=0"`
	Description       string     `json:"description"`
	EstimatedDuration int        `json:"estimated_duration" binding:"min=0"`
	IsActive          *bool      `json:"is_active"`
	NextDue           *time.Time `json:"next_due"`
	SOPID             *uint      `json:"sop_id"`
	AssignedTeamID    *uint      `json:"assigned_team_id"`
}

func (r ScheduleRequest) input() services.ScheduleInput {
	return services.ScheduleInput{
		EquipmentID:       r.EquipmentID,
		Frequency:         r.Frequency,
		FrequencyValue:    r.FrequencyValue,
		Description:       r.Description,
		EstimatedDuration: r.EstimatedDuration,
		IsActive:          r.IsActive,
		NextDue:           r.NextDue,
		SOPID:             r.SOPID,
		AssignedTeamID:    r.AssignedTeamID,
	}
}

type CompleteScheduleRequest struct {
	CreateWorkOrder bool `json:"create_work_order"`
}

const defaultUpcomingDays = 7

type MaintenanceScheduleHandler struct {
	service *services.MaintenanceScheduleService
}

func NewMaintenanceScheduleHandler(service *services.MaintenanceScheduleService) *MaintenanceScheduleHandler {
	return &MaintenanceScheduleHandler{service: service}
}

// Create 创建保养计划
func (h *MaintenanceScheduleHandler) Create(c *gin.Context) {
	var req ScheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	schedule, err := h.service.Create(c.Request.Context(), middleware.CurrentActor(c), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, schedule)
}

func (h *MaintenanceScheduleHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	schedule, err := h.service.GetByID(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, schedule)
}

// List 保养计划列表，due_before 为 RFC3339 时间
func (h *MaintenanceScheduleHandler) List(c *gin.Context) {
	filter := services.ScheduleFilter{
		EquipmentID: queryUint(c, "equipment_id"),
		IsActive:    queryBool(c, "is_active"),
	}
	if v := c.Query("due_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "due_before 格式错误，应为 RFC3339")
			return
		}
		filter.DueBefore = &t
	}

	page := pagination.ParsePageParams(c)
	items, total, err := h.service.List(c.Request.Context(), middleware.CurrentActor(c), filter, page)
	if err != nil {
		handleError(c, err)
		return
	}
	successPage(c, items, page, total)
}

func (h *MaintenanceScheduleHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ScheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	schedule, err := h.service.Update(c.Request.Context(), middleware.CurrentActor(c), id, req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, schedule)
}

func (h *MaintenanceScheduleHandler) Delete(c *gin.Context) {
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

// Complete 完成本期保养并推进下次日期，可选同时生成预防性工单
func (h *MaintenanceScheduleHandler) Complete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req CompleteScheduleRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	schedule, wo, err := h.service.CompleteOccurrence(c.Request.Context(), middleware.CurrentActor(c), id, req.CreateWorkOrder)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"schedule": schedule, "work_order": wo})
}

// Upcoming 未来 days 天内到期的计划，默认 7 天
func (h *MaintenanceScheduleHandler) Upcoming(c *gin.Context) {
	days := int(queryUint(c, "days"))
	if days == 0 {
		days = defaultUpcomingDays
	}

	items, err := h.service.Upcoming(c.Request.Context(), middleware.CurrentActor(c), time.Duration(days)*24*time.Hour)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}
