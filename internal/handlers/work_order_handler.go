package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/services"
	"cmms/pkg/pagination"
	"cmms/pkg/response"
	"time"

	"github.com/gin-gonic/gin"
)

type WorkOrderRequest struct {
	Title             string     `json:"title" binding:"required,max=200"`
	Description       string     `json:"description"`
	Priority          string     `json:"priority"`
	WorkType          string     `json:"work_type"`
	EquipmentID       *uint      `json:"equipment_id"`
	LocationID        *uint      `json:"location_id"`
	AssignedToID      *uint      `json:"assigned_to_id"`
	TeamID            *uint      `json:"team_id"`
	ScheduledDate     *time.Time `json:"scheduled_date"`
	DueDate           *time.Time `json:"due_date"`
	EstimatedDuration int        `json:"estimated_duration" binding:"min=0"`
	Checklist         []string   `json:"checklist"`
}

func (r WorkOrderRequest) input() services.WorkOrderInput {
	return services.WorkOrderInput{
		Title:             r.Title,
		Description:       r.Description,
		Priority:          r.Priority,
		WorkType:          r.WorkType,
		EquipmentID:       r.EquipmentID,
		LocationID:        r.LocationID,
		AssignedToID:      r.AssignedToID,
		TeamID:            r.TeamID,
		ScheduledDate:     r.ScheduledDate,
		DueDate:           r.DueDate,
		EstimatedDuration: r.EstimatedDuration,
		Checklist:         r.Checklist,
	}
}

type AssignWorkOrderRequest struct {
	AssignedToID *uint `json:"assigned_to_id"`
	TeamID       *uint `json:"team_id"`
}

type WorkOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

type WorkOrderCommentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

type ChecklistItemRequest struct {
	IsCompleted bool   `json:"is_completed"`
	Notes       string `json:"notes"`
}

type WorkOrderHandler struct {
	service *services.WorkOrderService
}

func NewWorkOrderHandler(service *services.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{service: service}
}

// ========== 基础CRUD方法 ==========

// Create 创建工单
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req WorkOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	wo, err := h.service.Create(c.Request.Context(), middleware.CurrentActor(c), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, wo)
}

// GetByID 工单详情，含检查项和评论
func (h *WorkOrderHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	wo, err := h.service.GetByID(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, wo)
}

// List 工单列表
func (h *WorkOrderHandler) List(c *gin.Context) {
	page := pagination.ParsePageParams(c)
	items, total, err := h.service.List(c.Request.Context(), middleware.CurrentActor(c), services.WorkOrderFilter{
		Search:       c.Query("search"),
		Status:       c.Query("status"),
		Priority:     c.Query("priority"),
		AssignedToID: queryUint(c, "assigned_to_id"),
		EquipmentID:  queryUint(c, "equipment_id"),
		TeamID:       queryUint(c, "team_id"),
	}, page)
	if err != nil {
		handleError(c, err)
		return
	}
	successPage(c, items, page, total)
}

// Update 更新工单内容，状态通过 UpdateStatus 修改
func (h *WorkOrderHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req WorkOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	wo, err := h.service.Update(c.Request.Context(), middleware.CurrentActor(c), id, req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, wo)
}

// Delete 删除工单
func (h *WorkOrderHandler) Delete(c *gin.Context) {
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

// ========== 流转 ==========

// Assign 指派技术员或班组
func (h *WorkOrderHandler) Assign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AssignWorkOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	wo, err := h.service.Assign(c.Request.Context(), middleware.CurrentActor(c), id, req.AssignedToID, req.TeamID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, wo)
}

// UpdateStatus 状态流转，非法流转返回 400
func (h *WorkOrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req WorkOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	wo, err := h.service.UpdateStatus(c.Request.Context(), middleware.CurrentActor(c), id, req.Status, req.Notes)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, wo)
}

// AddComment 添加评论
func (h *WorkOrderHandler) AddComment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req WorkOrderCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), middleware.CurrentActor(c), id, req.Comment)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, comment)
}

// UpdateChecklistItem 勾选检查项
func (h *WorkOrderHandler) UpdateChecklistItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseID(c, "item_id")
	if !ok {
		return
	}
	var req ChecklistItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.service.UpdateChecklistItem(c.Request.Context(), middleware.CurrentActor(c), id, itemID, req.IsCompleted, req.Notes)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}
