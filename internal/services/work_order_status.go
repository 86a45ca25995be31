package services

import (
	"cmms/internal/models"
	"fmt"
	"time"
)

// 允许的状态流转，completed 和 cancelled 为终态
var allowedTransitions = map[string][]string{
	models.WorkOrderOpen:       {models.WorkOrderInProgress, models.WorkOrderCompleted, models.WorkOrderCancelled},
	models.WorkOrderInProgress: {models.WorkOrderCompleted, models.WorkOrderCancelled},
	models.WorkOrderCompleted:  {},
	models.WorkOrderCancelled:  {},
}

// IsValidWorkOrderStatus 状态是否合法
func IsValidWorkOrderStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

// CanTransition 判断状态能否流转
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplyStatusTransition 修改工单状态并维护实际开始、结束时间和工时。
// 目标与当前状态相同时不做任何修改，返回 changed=false
func ApplyStatusTransition(wo *models.WorkOrder, target string, now time.Time) (bool, error) {
	if !IsValidWorkOrderStatus(target) {
		return false, fmt.Errorf("%w: %s", ErrInvalidStatus, target)
	}
	if wo.Status == target {
		return false, nil
	}
	if !CanTransition(wo.Status, target) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, wo.Status, target)
	}

	switch target {
	case models.WorkOrderInProgress:
		if wo.ActualStartTime == nil {
			start := now
			wo.ActualStartTime = &start
		}
	case models.WorkOrderCompleted:
		if wo.ActualEndTime == nil {
			end := now
			wo.ActualEndTime = &end
		}
		if wo.ActualStartTime != nil {
			minutes := int(wo.ActualEndTime.Sub(*wo.ActualStartTime).Minutes())
			wo.ActualDuration = &minutes
		}
	}

	wo.Status = target
	return true, nil
}
