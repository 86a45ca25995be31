package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/services"
	"cmms/pkg/pagination"
	"cmms/pkg/response"

	"github.com/gin-gonic/gin"
)

type SOPChecklistItemRequest struct {
	Description string `json:"description" binding:"required"`
	IsRequired  bool   `json:"is_required"`
}

type SOPRequest struct {
	Title             string                    `json:"title" binding:"required,max=200"`
	Description       string                    `json:"description"`
	Category          string                    `json:"category" binding:"max=50"`
	EquipmentID       *uint                     `json:"equipment_id"`
	EstimatedDuration int                       `json:"estimated_duration" binding:"min=0"`
	SafetyNotes       string                    `json:"safety_notes"`
	RequiredTools     string                    `json:"required_tools"`
	IsActive          *bool                     `json:"is_active"`
	ChecklistItems    []SOPChecklistItemRequest `json:"checklist_items" binding:"dive"`
}

func (r SOPRequest) input() services.SOPInput {
	var items []services.SOPChecklistInput
	if r.ChecklistItems != nil {
		items = make([]services.SOPChecklistInput, 0, len(r.ChecklistItems))
	}
	for _, item := range r.ChecklistItems {
		items = append(items, services.SOPChecklistInput{Description: item.Description, IsRequired: item.IsRequired})
	}
	return services.SOPInput{
		Title:             r.Title,
		Description:       r.Description,
		Category:          r.Category,
		EquipmentID:       r.EquipmentID,
		EstimatedDuration: r.EstimatedDuration,
		SafetyNotes:       r.SafetyNotes,
		RequiredTools:     r.RequiredTools,
		IsActive:          r.IsActive,
		ChecklistItems:    items,
	}
}

type SOPHandler struct {
	service *services.SOPService
}

func NewSOPHandler(service *services.SOPService) *SOPHandler {
	return &SOPHandler{service: service}
}

func (h *SOPHandler) Create(c *gin.Context) {
	var req SOPRequest
	if !bindJSON(c, &req) {
		return
	}

	sop, err := h.service.Create(c.Request.Context(), middleware.CurrentActor(c), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sop)
}

func (h *SOPHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	sop, err := h.service.GetByID(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sop)
}

func (h *SOPHandler) List(c *gin.Context) {
	page := pagination.ParsePageParams(c)
	sops, total, err := h.service.List(c.Request.Context(), middleware.CurrentActor(c), c.Query("search"), page)
	if err != nil {
		handleError(c, err)
		return
	}
	successPage(c, sops, page, total)
}

// Update 更新 SOP，传入 checklist_items 时整体替换
func (h *SOPHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req SOPRequest
	if !bindJSON(c, &req) {
		return
	}

	sop, err := h.service.Update(c.Request.Context(), middleware.CurrentActor(c), id, req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sop)
}

func (h *SOPHandler) Delete(c *gin.Context) {
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
