package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/services"
	"cmms/pkg/pagination"
	"cmms/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryRequest struct {
	PartNumber   string  `json:"part_number" binding:"required,max=50"`
	Name         string  `json:"name" binding:"required,max=100"`
	Description  string  `json:"description"`
	Category     string  `json:"category" binding:"max=50"`
	CurrentStock int     `json:"current_stock" binding:"min=0"`
	MinimumStock int     `json:"minimum_stock" binding:"min=0"`
	MaximumStock int     `json:"maximum_stock" binding:"min=0"`
	UnitCost     float64 `json:"unit_cost" binding:"min=0"`
	Unit         string  `json:"unit" binding:"max=20"`
	VendorID     *uint   `json:"vendor_id"`
	LocationID   *uint   `json:"location_id"`
}

func (r InventoryRequest) input() services.InventoryInput {
	return services.InventoryInput{
		PartNumber:   r.PartNumber,
		Name:         r.Name,
		Description:  r.Description,
		Category:     r.Category,
		CurrentStock: r.CurrentStock,
		MinimumStock: r.MinimumStock,
		MaximumStock: r.MaximumStock,
		UnitCost:     r.UnitCost,
		Unit:         r.Unit,
		VendorID:     r.VendorID,
		LocationID:   r.LocationID,
	}
}

type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type InventoryHandler struct {
	service *services.InventoryService
}

func NewInventoryHandler(service *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// Create 创建库存项
func (h *InventoryHandler) Create(c *gin.Context) {
	var req InventoryRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.service.Create(c.Request.Context(), middleware.CurrentActor(c), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

// GetByID 获取库存项
func (h *InventoryHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.GetByID(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

// List 库存列表，low_stock=true 只返回低于最低库存的项
func (h *InventoryHandler) List(c *gin.Context) {
	page := pagination.ParsePageParams(c)
	lowStock := queryBool(c, "low_stock")
	items, total, err := h.service.List(c.Request.Context(), middleware.CurrentActor(c), c.Query("search"), lowStock != nil && *lowStock, page)
	if err != nil {
		handleError(c, err)
		return
	}
	successPage(c, items, page, total)
}

// Update 更新库存项
func (h *InventoryHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req InventoryRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.service.Update(c.Request.Context(), middleware.CurrentActor(c), id, req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

// AdjustStock 出入库
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AdjustStockRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.service.AdjustStock(c.Request.Context(), middleware.CurrentActor(c), id, req.Delta)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

// Delete 删除库存项
func (h *InventoryHandler) Delete(c *gin.Context) {
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
