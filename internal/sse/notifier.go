package sse

import (
	"time"

	"github.com/GTDGit/order_console/internal/models"
)

// OrderNotifier is the interface the order repository uses to emit cache mutations.
type OrderNotifier interface {
	NotifyOrderUpdated(order *models.Order)
	NotifyOrderDeleted(orderID int)
	NotifyCacheCleared()
}

// HubNotifier implements OrderNotifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyOrderUpdated(order *models.Order) {
	n.hub.Broadcast(&OrderEvent{Event: EventOrderUpdated, OrderID: order.ID, Order: order.Clone(), Timestamp: time.Now()})
}

func (n *HubNotifier) NotifyOrderDeleted(orderID int) {
	n.hub.Broadcast(&OrderEvent{Event: EventOrderDeleted, OrderID: orderID, Timestamp: time.Now()})
}

func (n *HubNotifier) NotifyCacheCleared() {
	n.hub.Broadcast(&OrderEvent{Event: EventCacheCleared, Timestamp: time.Now()})
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (NopNotifier) NotifyOrderUpdated(*models.Order) {}
func (NopNotifier) NotifyOrderDeleted(int)          {}
func (NopNotifier) NotifyCacheCleared()             {}
