package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/services"
	"cmms/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Dashboard 租户概览统计
func (h *ReportHandler) Dashboard(c *gin.Context) {
	stats, err := h.service.DashboardStats(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}
