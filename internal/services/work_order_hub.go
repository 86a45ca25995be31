package services

import (
	"cmms/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// 工单事件类型
const (
	EventWorkOrderCreated       = "created"
	EventWorkOrderUpdated       = "updated"
	EventWorkOrderStatusChanged = "status_changed"
	EventWorkOrderAssigned      = "assigned"
	EventWorkOrderDeleted       = "deleted"
)

// WorkOrderEvent 推送给同租户订阅者的工单事件
type WorkOrderEvent struct {
	Type        string    `json:"type"`
	TenantID    uint      `json:"tenant_id"`
	WorkOrderID uint      `json:"work_order_id"`
	Number      string    `json:"work_order_number"`
	Status      string    `json:"status"`
	FromStatus  string    `json:"from_status,omitempty"`
	ActorID     uint      `json:"actor_id"`
	At          time.Time `json:"at"`
}

// EventPublisher 工单事件发布
type EventPublisher interface {
	Publish(ctx context.Context, event WorkOrderEvent)
}

const subscriberBuffer = 32

// WorkOrderHub 按租户分发工单事件。
// 配置了 Redis 时经 Redis 频道中转，多实例部署下所有实例的订阅者都能收到
type WorkOrderHub struct {
	client *redis.Client
	prefix string

	mu   sync.RWMutex
	subs map[uint]map[chan WorkOrderEvent]struct{}
}

func NewWorkOrderHub(client *redis.Client, prefix string) *WorkOrderHub {
	return &WorkOrderHub{
		client: client,
		prefix: prefix,
		subs:   make(map[uint]map[chan WorkOrderEvent]struct{}),
	}
}

func (h *WorkOrderHub) channel(tenantID uint) string {
	return fmt.Sprintf("%s:work_orders:%d", h.prefix, tenantID)
}

// Subscribe 订阅租户事件，返回的函数用于取消订阅
func (h *WorkOrderHub) Subscribe(tenantID uint) (<-chan WorkOrderEvent, func()) {
	ch := make(chan WorkOrderEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[tenantID] == nil {
		h.subs[tenantID] = make(map[chan WorkOrderEvent]struct{})
	}
	h.subs[tenantID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[tenantID], ch)
			if len(h.subs[tenantID]) == 0 {
				delete(h.subs, tenantID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish 发布事件，Redis 不可用时退回本地分发
func (h *WorkOrderHub) Publish(ctx context.Context, event WorkOrderEvent) {
	if h == nil {
		return
	}
	if h.client != nil {
		payload, err := json.Marshal(event)
		if err == nil {
			err = h.client.Publish(ctx, h.channel(event.TenantID), payload).Err()
		}
		if err == nil {
			return
		}
		logger.ForTenant(event.TenantID).Warnf("Work order event publish failed, dispatching locally: %v", err)
	}
	h.dispatch(event)
}

// Run 从 Redis 接收事件并分发给本实例的订阅者，直到 ctx 结束
func (h *WorkOrderHub) Run(ctx context.Context) error {
	if h.client == nil {
		<-ctx.Done()
		return nil
	}

	pubsub := h.client.PSubscribe(ctx, h.prefix+":work_orders:*")
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("订阅工单事件失败: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event WorkOrderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.GetLogger().WithField("channel", msg.Channel).Warnf("Invalid work order event: %v", err)
				continue
			}
			h.dispatch(event)
		}
	}
}

func (h *WorkOrderHub) dispatch(event WorkOrderEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[event.TenantID] {
		select {
		case ch <- event:
		default:
			// 订阅者消费过慢，丢弃
			logger.GetLogger().WithFields(logrus.Fields{
				"tenant_id":     event.TenantID,
				"work_order_id": event.WorkOrderID,
			}).Debug("Work order event dropped for slow subscriber")
		}
	}
}
