package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/services"
	"cmms/pkg/pagination"
	"cmms/pkg/response"
	"time"

	"github.com/gin-gonic/gin"
)

type EquipmentRequest struct {
	Name             string     `json:"name" binding:"required,max=100"`
	AssetTag         string     `json:"asset_tag" binding:"required,max=50"`
	Category         string     `json:"category" binding:"max=50"`
	Manufacturer     string     `json:"manufacturer" binding:"max=100"`
	Model            string     `json:"model" binding:"max=100"`
	SerialNumber     string     `json:"serial_number" binding:"max=100"`
	Description      string     `json:"description"`
	LocationID       *uint      `json:"location_id"`
	DepartmentID     *uint      `json:"department_id"`
	Status           string     `json:"status"`
	Criticality      string     `json:"criticality" binding:"omitempty,oneof=low medium high critical"`
	InstallationDate *time.Time `json:"installation_date"`
	WarrantyExpiry   *time.Time `json:"warranty_expiry"`
}

func (r EquipmentRequest) input() services.EquipmentInput {
	return services.EquipmentInput{
		Name:             r.Name,
		AssetTag:         r.AssetTag,
		Category:         r.Category,
		Manufacturer:     r.Manufacturer,
		Model:            r.Model,
		SerialNumber:     r.SerialNumber,
		Description:      r.Description,
		LocationID:       r.LocationID,
		DepartmentID:     r.DepartmentID,
		Status:           r.Status,
		Criticality:      r.Criticality,
		InstallationDate: r.InstallationDate,
		WarrantyExpiry:   r.WarrantyExpiry,
	}
}

type EquipmentHandler struct {
	service *services.EquipmentService
}

func NewEquipmentHandler(service *services.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{service: service}
}

// Create 创建设备
func (h *EquipmentHandler) Create(c *gin.Context) {
	var req EquipmentRequest
	if !bindJSON(c, &req) {
		return
	}

	equipment, err := h.service.Create(c.Request.Context(), middleware.CurrentActor(c), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, equipment)
}

// GetByID 获取设备
func (h *EquipmentHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	equipment, err := h.service.GetByID(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, equipment)
}

// List 设备列表
func (h *EquipmentHandler) List(c *gin.Context) {
	page := pagination.ParsePageParams(c)
	items, total, err := h.service.List(c.Request.Context(), middleware.CurrentActor(c), services.EquipmentFilter{
		Search:     c.Query("search"),
		Status:     c.Query("status"),
		Category:   c.Query("category"),
		LocationID: queryUint(c, "location_id"),
	}, page)
	if err != nil {
		handleError(c, err)
		return
	}
	successPage(c, items, page, total)
}

// Update 更新设备
func (h *EquipmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req EquipmentRequest
	if !bindJSON(c, &req) {
		return
	}

	equipment, err := h.service.Update(c.Request.Context(), middleware.CurrentActor(c), id, req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, equipment)
}

// Delete 删除设备
func (h *EquipmentHandler) Delete(c *gin.Context) {
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
