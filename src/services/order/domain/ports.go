package domain

import (
	"context"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/services/inventory"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/user"
)

// OrderStore persists orders. CreateOrder must return ErrDuplicateOrderID
// when the order id is taken.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderByID(ctx context.Context, orderID string) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	// SaveStatusTransition writes the order only if its stored status still
	// equals expected, and reports whether it did.
	SaveStatusTransition(ctx context.Context, order *Order, expected Status) (bool, error)
	SetNotificationStatus(ctx context.Context, orderID, status string) error
	FindOrdersCreatedBetween(ctx context.Context, from *time.Time, to time.Time) ([]Order, error)
}

// ProductRepository is the part of the catalog the order flow needs.
type ProductRepository interface {
	GetProductById(ctx context.Context, productID string) (*inventory.Product, error)
	DecrementStock(ctx context.Context, productID string, quantity int) (bool, error)
	IncrementStock(ctx context.Context, productID string, quantity int) error
}

type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (*user.User, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// StoredEvent is an event that could not be published and waits for replay.
type StoredEvent struct {
	ID        string
	OrderID   string
	Topic     string
	EventData []byte
}

type EventStore interface {
	StoreEventForReplay(ctx context.Context, orderID, topic string, data []byte) error
	GetUnreplayedEvents(ctx context.Context, limit int64) ([]StoredEvent, error)
	MarkEventAsReplaying(ctx context.Context, eventID string) error
	MarkEventAsCompleted(ctx context.Context, eventID string) error
	MarkEventAsFailed(ctx context.Context, eventID string) error
}

// Transactor runs fn atomically when the backing store supports it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type MetricsRecorder interface {
	OrderPlaced(totalAmount float64)
	OrderStatusChanged(from, to string)
	OrderCancelled()
	StockRejected(productID string)
}

type OrderFilter struct {
	UserID string
	Status Status
	Page   int
	Limit  int
}

type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
}

type OrderPage struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Actor is the caller on whose behalf an operation runs.
type Actor struct {
	UserID string
	Admin  bool
}

type ReplayResult struct {
	Total    int `json:"total"`
	Replayed int `json:"replayed"`
	Failed   int `json:"failed"`
}

type noTransaction struct{}

func (noTransaction) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type noMetrics struct{}

func (noMetrics) OrderPlaced(float64)               {}
func (noMetrics) OrderStatusChanged(string, string) {}
func (noMetrics) OrderCancelled()                   {}
func (noMetrics) StockRejected(string)              {}
