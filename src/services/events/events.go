package events

import (
	"errors"
	"time"
)

const (
	// Event types
	OrderPlaced        = "order.placed"
	OrderStatusChanged = "order.status.changed"
	OrderCancelled     = "order.cancelled"
	InventoryLowStock  = "inventory.low_stock"
	NotificationSent   = "notification.sent"

	// Event status enums for order_events collection
	EventStatusPending   = "pending"   // Event is waiting to be processed
	EventStatusFailed    = "failed"    // Event processing failed, needs replay
	EventStatusCompleted = "completed" // Event was successfully processed
	EventStatusReplaying = "replaying" // Event is currently being replayed

	DLQSuffix = ".dlq"
)

// Topics lists every routed event; each gets a queue and a DLQ.
var Topics = []string{
	OrderPlaced,
	OrderStatusChanged,
	OrderCancelled,
	InventoryLowStock,
	NotificationSent,
}

// DLQ returns the dead-letter routing key for topic.
func DLQ(topic string) string {
	return topic + DLQSuffix
}

type OrderItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type OrderPlacedEvent struct {
	EventID     string      `json:"eventId"`
	OrderID     string      `json:"orderId"`
	UserID      string      `json:"userId"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Version     int         `json:"version"`
	TimeStamp   time.Time   `json:"timestamp"`
}

func (e *OrderPlacedEvent) Validate() error {
	if e.OrderID == "" || e.UserID == "" || len(e.Items) == 0 {
		return errors.New("missing required fields in OrderPlacedEvent")
	}
	return nil
}

type OrderStatusChangedEvent struct {
	EventID   string    `json:"eventId"`
	OrderID   string    `json:"orderId"`
	UserID    string    `json:"userId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Version   int       `json:"version"`
	TimeStamp time.Time `json:"timestamp"`
}

func (e *OrderStatusChangedEvent) Validate() error {
	if e.OrderID == "" || e.To == "" {
		return errors.New("missing required fields in OrderStatusChangedEvent")
	}
	return nil
}

type OrderCancelledEvent struct {
	EventID   string      `json:"eventId"`
	OrderID   string      `json:"orderId"`
	UserID    string      `json:"userId"`
	Reason    string      `json:"reason"`
	Items     []OrderItem `json:"items"`
	Version   int         `json:"version"`
	TimeStamp time.Time   `json:"timestamp"`
}

func (e *OrderCancelledEvent) Validate() error {
	if e.OrderID == "" {
		return errors.New("missing required fields in OrderCancelledEvent")
	}
	return nil
}

type InventoryLowStockEvent struct {
	EventID   string    `json:"eventId"`
	OrderID   string    `json:"orderId"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	Threshold int       `json:"threshold"`
	Version   int       `json:"version"`
	TimeStamp time.Time `json:"timestamp"`
}

func (e *InventoryLowStockEvent) Validate() error {
	if e.ProductID == "" {
		return errors.New("missing required fields in InventoryLowStockEvent")
	}
	return nil
}

type NotificationSentEvent struct {
	EventID   string    `json:"eventId"`
	OrderID   string    `json:"orderId"`
	Message   string    `json:"message"`
	Version   int       `json:"version"`
	TimeStamp time.Time `json:"timestamp"`
}

func (e *NotificationSentEvent) Validate() error {
	if e.OrderID == "" || e.Message == "" {
		return errors.New("missing required fields in NotificationSentEvent")
	}
	return nil
}
