package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	crossTenantDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmms_cross_tenant_denials_total",
		Help: "Number of rejected cross-tenant record accesses",
	}, []string{"entity"})

	permissionDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmms_permission_denials_total",
		Help: "Number of failed permission checks",
	}, []string{"permission"})

	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmms_notifications_total",
		Help: "Notification delivery attempts by result",
	}, []string{"status"})

	workOrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmms_work_order_transitions_total",
		Help: "Applied work order status transitions",
	}, []string{"to"})
)
