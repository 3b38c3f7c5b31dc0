package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/events"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	replayBatchSize  = 100
)

type OrderService interface {
	ReserveStockAndCreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error)
	GetOrder(ctx context.Context, orderID string, actor Actor) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) (*OrderPage, error)
	ListUserOrders(ctx context.Context, userID string, page, limit int) (*OrderPage, error)
	UpdateStatus(ctx context.Context, orderID string, change StatusChange) (*Order, error)
	CancelOrder(ctx context.Context, orderID string, actor Actor, reason string) (*Order, error)
	RecordNotification(ctx context.Context, orderID, status string) error
	GetStats(ctx context.Context, period string) (*OrderStats, error)
	ReplayFailedEvents(ctx context.Context) (*ReplayResult, error)
}

type ItemRequest struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	UserID          string
	Items           []ItemRequest
	DeliveryAddress DeliveryAddress
	PaymentMethod   string
	OrderNotes      string
}

func (in CreateOrderInput) Validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return &ValidationError{Field: "userId", Message: "user id is required"}
	}
	if len(in.Items) == 0 {
		return &ValidationError{Field: "items", Message: "order must contain at least one item"}
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return &ValidationError{Field: fmt.Sprintf("items[%d].productId", i), Message: "product id is required"}
		}
		if item.Quantity < 1 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "quantity must be at least 1"}
		}
	}
	addr := in.DeliveryAddress
	switch {
	case strings.TrimSpace(addr.Name) == "":
		return &ValidationError{Field: "deliveryAddress.name", Message: "name is required"}
	case strings.TrimSpace(addr.Phone) == "":
		return &ValidationError{Field: "deliveryAddress.phone", Message: "phone is required"}
	case strings.TrimSpace(addr.Address) == "":
		return &ValidationError{Field: "deliveryAddress.address", Message: "address is required"}
	}
	return nil
}

// Dependencies wires an order service. Orders, Products and Logger are
// required; the rest fall back to no-op or default behaviour.
type Dependencies struct {
	Logger     log.Logger
	Orders     OrderStore
	Products   ProductRepository
	Users      UserDirectory
	Publisher  EventPublisher
	Events     EventStore
	Transactor Transactor
	Metrics    MetricsRecorder

	Pricing                Pricing
	OrderNumbers           *OrderNumberGenerator
	MaxOrderNumberAttempts int
	PublishRetries         int
	PublishBackoff         time.Duration
	Now                    func() time.Time
}

type orderService struct {
	logger     log.Logger
	orders     OrderStore
	products   ProductRepository
	users      UserDirectory
	publisher  EventPublisher
	events     EventStore
	tx         Transactor
	metrics    MetricsRecorder
	pricing    Pricing
	numbers    *OrderNumberGenerator
	maxNumbers int
	retries    int
	backoff    time.Duration
	now        func() time.Time
}

func NewOrderService(deps Dependencies) OrderService {
	s := &orderService{
		logger:     deps.Logger,
		orders:     deps.Orders,
		products:   deps.Products,
		users:      deps.Users,
		publisher:  deps.Publisher,
		events:     deps.Events,
		tx:         deps.Transactor,
		metrics:    deps.Metrics,
		pricing:    deps.Pricing,
		numbers:    deps.OrderNumbers,
		maxNumbers: deps.MaxOrderNumberAttempts,
		retries:    deps.PublishRetries,
		backoff:    deps.PublishBackoff,
		now:        deps.Now,
	}
	if s.tx == nil {
		s.tx = noTransaction{}
	}
	if s.metrics == nil {
		s.metrics = noMetrics{}
	}
	if s.pricing == (Pricing{}) {
		s.pricing = DefaultPricing()
	}
	if s.numbers == nil {
		s.numbers = NewOrderNumberGenerator("ORD")
	}
	if s.maxNumbers < 1 {
		s.maxNumbers = 3
	}
	if s.retries < 1 {
		s.retries = 2
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().Local() }
	}
	return s
}

// ReserveStockAndCreateOrder debits stock and inserts the order as one unit.
// Stock is debited with conditional decrements so concurrent orders can never
// oversell; any failure after a debit credits it back.
func (s *orderService) ReserveStockAndCreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	method, err := ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	items, err := s.snapshotItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	totals := s.pricing.Calculate(items)

	now := s.now()
	draft := &Order{
		UserID:          input.UserID,
		Items:           items,
		DeliveryAddress: input.DeliveryAddress,
		PaymentMethod:   method,
		PaymentStatus:   PaymentPending,
		OrderStatus:     StatusPending,
		OrderNotes:      input.OrderNotes,
		Subtotal:        totals.Subtotal,
		DeliveryCharge:  totals.DeliveryCharge,
		Tax:             totals.Tax,
		TotalAmount:     totals.TotalAmount,
		StatusHistory:   []StatusEntry{{Status: StatusPending, At: now}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var order *Order
	for attempt := 1; attempt <= s.maxNumbers; attempt++ {
		candidate := draft.clone()
		candidate.OrderID = s.numbers.Next()

		err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := s.reserveStock(txCtx, candidate.Items); err != nil {
				return err
			}
			if err := s.orders.CreateOrder(txCtx, candidate); err != nil {
				s.releaseStock(txCtx, candidate.OrderID, candidate.Items)
				return err
			}
			return nil
		})
		if err == nil {
			order = candidate
			break
		}
		if !errors.Is(err, ErrDuplicateOrderID) {
			return nil, s.classify(ctx, "create order", err)
		}
		s.logger.Warn(ctx, fmt.Sprintf("order id %s already taken, attempt %d/%d", candidate.OrderID, attempt, s.maxNumbers))
	}
	if order == nil {
		err = fmt.Errorf("%w after %d attempts", ErrDuplicateOrderID, s.maxNumbers)
		s.logger.Exception(ctx, "could not allocate a unique order id", err)
		return nil, internal("create order", err)
	}

	s.metrics.OrderPlaced(order.TotalAmount)
	s.logger.InfoWithExtra(ctx, fmt.Sprintf("order %s placed", order.OrderID), map[string]interface{}{
		"userId":      order.UserID,
		"totalAmount": order.TotalAmount,
		"items":       len(order.Items),
	})

	placed := events.OrderPlacedEvent{
		EventID:     uuid.NewString(),
		OrderID:     order.OrderID,
		UserID:      order.UserID,
		Items:       eventItems(order.Items),
		TotalAmount: order.TotalAmount,
		Version:     1,
		TimeStamp:   now,
	}
	s.publish(ctx, events.OrderPlaced, order.OrderID, &placed)

	s.attachCustomer(ctx, order)
	return order, nil
}

// snapshotItems loads every product, pre-checks stock and freezes the
// current price and name into the order lines.
func (s *orderService) snapshotItems(ctx context.Context, requested []ItemRequest) ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(requested))
	for _, req := range requested {
		product, err := s.products.GetProductById(ctx, req.ProductID)
		if err != nil {
			s.logger.Exception(ctx, fmt.Sprintf("failed to load product %s", req.ProductID), err)
			return nil, internal("load product", err)
		}
		if product == nil || !product.IsActive {
			return nil, &NotFoundError{Resource: "product", ID: req.ProductID}
		}
		if product.Stock < req.Quantity {
			s.metrics.StockRejected(req.ProductID)
			return nil, &InsufficientStockError{ProductID: req.ProductID, Requested: req.Quantity, Available: product.Stock}
		}
		items = append(items, OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  req.Quantity,
			UnitPrice: product.Price,
			LineTotal: LineTotal(product.Price, req.Quantity),
		})
	}
	return items, nil
}

// reserveStock debits every item or none of them.
func (s *orderService) reserveStock(ctx context.Context, items []OrderItem) error {
	reserved := make([]OrderItem, 0, len(items))
	for _, item := range items {
		ok, err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.releaseStock(ctx, "", reserved)
			return internal("reserve stock", err)
		}
		if !ok {
			s.releaseStock(ctx, "", reserved)
			s.metrics.StockRejected(item.ProductID)
			available := 0
			if p, err := s.products.GetProductById(ctx, item.ProductID); err == nil && p != nil {
				available = p.Stock
			}
			return &InsufficientStockError{ProductID: item.ProductID, Requested: item.Quantity, Available: available}
		}
		reserved = append(reserved, item)
	}
	return nil
}

// releaseStock credits items back. Failures are logged per item and returned
// joined; a partial release needs manual reconciliation.
func (s *orderService) releaseStock(ctx context.Context, orderID string, items []OrderItem) error {
	var errs []error
	for _, item := range items {
		if err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Exception(ctx, fmt.Sprintf("failed to restore %d units of product %s for order %s",
				item.Quantity, item.ProductID, orderID), err)
			errs = append(errs, fmt.Errorf("restore product %s: %w", item.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

// restoreStock credits items back in order and stops at the first failure.
// It returns the items that were credited.
func (s *orderService) restoreStock(ctx context.Context, items []OrderItem) ([]OrderItem, error) {
	restored := make([]OrderItem, 0, len(items))
	for _, item := range items {
		if err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return restored, fmt.Errorf("restore product %s: %w", item.ProductID, err)
		}
		restored = append(restored, item)
	}
	return restored, nil
}

// reclaimStock takes back stock credited by an abandoned cancel. A product
// that can no longer cover the quantity is logged for reconciliation.
func (s *orderService) reclaimStock(ctx context.Context, orderID string, items []OrderItem) {
	for _, item := range items {
		ok, err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil && !ok {
			err = fmt.Errorf("only partial stock left for product %s", item.ProductID)
		}
		if err != nil {
			s.logger.Exception(ctx, fmt.Sprintf("failed to reclaim %d units of product %s for order %s",
				item.Quantity, item.ProductID, orderID), err)
		}
	}
}

func (s *orderService) GetOrder(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	order, err := s.load(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	s.attachCustomer(ctx, order)
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderFilter) (*OrderPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "unknown order status " + quote(string(filter.Status))}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	switch {
	case filter.Limit < 1:
		filter.Limit = defaultPageLimit
	case filter.Limit > maxPageLimit:
		filter.Limit = maxPageLimit
	}

	orders, total, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		s.logger.Exception(ctx, "failed to list orders", err)
		return nil, internal("list orders", err)
	}
	if orders == nil {
		orders = []Order{}
	}
	pages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &OrderPage{
		Orders:     orders,
		Pagination: Pagination{Current: filter.Page, Pages: pages, Total: total, Limit: filter.Limit},
	}, nil
}

func (s *orderService) ListUserOrders(ctx context.Context, userID string, page, limit int) (*OrderPage, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Field: "userId", Message: "user id is required"}
	}
	return s.ListOrders(ctx, OrderFilter{UserID: userID, Page: page, Limit: limit})
}

// UpdateStatus moves an order along the fulfilment state machine. Repeating
// the current status is a no-op; cancellation goes through CancelOrder so
// stock is always restored.
func (s *orderService) UpdateStatus(ctx context.Context, orderID string, change StatusChange) (*Order, error) {
	to, err := ParseStatus(change.Status)
	if err != nil {
		return nil, err
	}
	if to == StatusCancelled {
		return s.CancelOrder(ctx, orderID, Actor{Admin: true}, change.Notes)
	}

	current, err := s.load(ctx, orderID, Actor{Admin: true})
	if err != nil {
		return nil, err
	}
	from := current.OrderStatus
	if from == to {
		s.attachCustomer(ctx, current)
		return current, nil
	}
	if !CanTransition(from, to) {
		return nil, &InvalidStateError{OrderID: orderID, From: from, To: to}
	}

	now := s.now()
	updated := current.clone()
	updated.applyTransition(to, change, now)

	ok, err := s.orders.SaveStatusTransition(ctx, updated, from)
	if err != nil {
		s.logger.Exception(ctx, fmt.Sprintf("failed to save status of order %s", orderID), err)
		return nil, internal("update order status", err)
	}
	if !ok {
		return nil, &InvalidStateError{OrderID: orderID, From: from, To: to, Reason: "order was modified concurrently"}
	}

	s.metrics.OrderStatusChanged(string(from), string(to))
	s.logger.Info(ctx, fmt.Sprintf("order %s moved from %s to %s", orderID, from, to))

	changed := events.OrderStatusChangedEvent{
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		UserID:    updated.UserID,
		From:      string(from),
		To:        string(to),
		Version:   1,
		TimeStamp: now,
	}
	s.publish(ctx, events.OrderStatusChanged, orderID, &changed)

	s.attachCustomer(ctx, updated)
	return updated, nil
}

// CancelOrder cancels a non-terminal order and credits its stock back. Stock
// is credited before the status write; if any credit fails, or the
// conditional status write loses, the credited stock is reclaimed and the
// order is left as it was so the cancel can be retried.
func (s *orderService) CancelOrder(ctx context.Context, orderID string, actor Actor, reason string) (*Order, error) {
	current, err := s.load(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	from := current.OrderStatus
	if from.IsTerminal() {
		return nil, &InvalidStateError{OrderID: orderID, From: from, To: StatusCancelled}
	}

	now := s.now()
	var cancelled *Order
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		cancelled = current.clone()
		cancelled.applyTransition(StatusCancelled, StatusChange{Notes: reason}, now)

		restored, err := s.restoreStock(txCtx, cancelled.Items)
		if err != nil {
			s.reclaimStock(txCtx, orderID, restored)
			return internal("restore stock", err)
		}

		ok, err := s.orders.SaveStatusTransition(txCtx, cancelled, from)
		if err != nil {
			s.reclaimStock(txCtx, orderID, restored)
			return internal("cancel order", err)
		}
		if !ok {
			s.reclaimStock(txCtx, orderID, restored)
			return &InvalidStateError{OrderID: orderID, From: from, To: StatusCancelled, Reason: "order was modified concurrently"}
		}
		return nil
	})
	if err != nil {
		return nil, s.classify(ctx, "cancel order", err)
	}

	s.metrics.OrderCancelled()
	s.logger.Info(ctx, fmt.Sprintf("order %s cancelled from %s", orderID, from))

	event := events.OrderCancelledEvent{
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		UserID:    cancelled.UserID,
		Reason:    reason,
		Items:     eventItems(cancelled.Items),
		Version:   1,
		TimeStamp: now,
	}
	s.publish(ctx, events.OrderCancelled, orderID, &event)

	s.attachCustomer(ctx, cancelled)
	return cancelled, nil
}

// RecordNotification stores the outcome of the latest customer notification.
func (s *orderService) RecordNotification(ctx context.Context, orderID, status string) error {
	if err := s.orders.SetNotificationStatus(ctx, orderID, status); err != nil {
		s.logger.Exception(ctx, fmt.Sprintf("failed to record notification for order %s", orderID), err)
		return internal("record notification", err)
	}
	return nil
}

func (s *orderService) GetStats(ctx context.Context, period string) (*OrderStats, error) {
	now := s.now()
	name, from, err := PeriodRange(period, now)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.FindOrdersCreatedBetween(ctx, from, now)
	if err != nil {
		s.logger.Exception(ctx, "failed to load orders for statistics", err)
		return nil, internal("order statistics", err)
	}
	stats := Aggregate(orders)
	stats.Period = name
	stats.From = from
	stats.To = now
	return &stats, nil
}

// ReplayFailedEvents republishes stored events to the topic they were
// originally meant for, oldest first.
func (s *orderService) ReplayFailedEvents(ctx context.Context) (*ReplayResult, error) {
	if s.publisher == nil || s.events == nil {
		return nil, internal("replay events", ErrPublishingDisabled)
	}

	stored, err := s.events.GetUnreplayedEvents(ctx, replayBatchSize)
	if err != nil {
		s.logger.Exception(ctx, "failed to fetch unreplayed events", err)
		return nil, internal("replay events", err)
	}
	result := &ReplayResult{Total: len(stored)}
	if len(stored) == 0 {
		s.logger.Info(ctx, "No events to replay")
		return result, nil
	}

	s.logger.Info(ctx, fmt.Sprintf("Starting replay of %d failed events", len(stored)))
	for _, evt := range stored {
		if err := s.events.MarkEventAsReplaying(ctx, evt.ID); err != nil {
			s.logger.Warn(ctx, fmt.Sprintf("Failed to mark event %s as replaying: %v", evt.ID, err))
		}

		if pubErr := s.publishWithRetry(ctx, evt.Topic, evt.OrderID, evt.EventData); pubErr != nil {
			s.logger.Exception(ctx, fmt.Sprintf("Replay failed for event %s", evt.ID), pubErr)
			if err := s.events.MarkEventAsFailed(ctx, evt.ID); err != nil {
				s.logger.Warn(ctx, fmt.Sprintf("Failed to mark event %s as failed: %v", evt.ID, err))
			}
			result.Failed++
			continue
		}

		if err := s.events.MarkEventAsCompleted(ctx, evt.ID); err != nil {
			s.logger.Warn(ctx, fmt.Sprintf("Failed to mark event %s as completed: %v", evt.ID, err))
		}
		result.Replayed++
	}

	s.logger.Info(ctx, fmt.Sprintf("Replay completed: %d successful, %d failed", result.Replayed, result.Failed))
	return result, nil
}

// load fetches an order visible to actor. Other users' orders are reported as
// missing so their existence is not disclosed.
func (s *orderService) load(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, &ValidationError{Field: "orderId", Message: "order id is required"}
	}
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		s.logger.Exception(ctx, fmt.Sprintf("failed to load order %s", orderID), err)
		return nil, internal("load order", err)
	}
	if order == nil || (!actor.Admin && order.UserID != actor.UserID) {
		return nil, &NotFoundError{Resource: "order", ID: orderID}
	}
	return order, nil
}

func (s *orderService) attachCustomer(ctx context.Context, order *Order) {
	if s.users == nil {
		return
	}
	u, err := s.users.GetUserByID(ctx, order.UserID)
	if err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("could not load customer %s for order %s: %v", order.UserID, order.OrderID, err))
		return
	}
	if u == nil {
		return
	}
	order.Customer = &Customer{ID: u.ID, Name: u.Name, Phone: u.Phone, Email: u.Email}
}

// publish never fails the caller: an event that cannot be delivered is kept
// in the event store for replay.
func (s *orderService) publish(ctx context.Context, topic, orderID string, event interface{ Validate() error }) {
	if s.publisher == nil {
		return
	}
	if err := event.Validate(); err != nil {
		s.logger.Exception(ctx, fmt.Sprintf("%s event for order %s is invalid", topic, orderID), err)
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Exception(ctx, fmt.Sprintf("failed to marshal %s event for order %s", topic, orderID), err)
		return
	}
	if err := s.publishWithRetry(ctx, topic, orderID, body); err != nil {
		s.logger.Exception(ctx, fmt.Sprintf("failed to publish %s for order %s after %d retries", topic, orderID, s.retries), err)
		if s.events == nil {
			return
		}
		if storeErr := s.events.StoreEventForReplay(ctx, orderID, topic, body); storeErr != nil {
			s.logger.Exception(ctx, fmt.Sprintf("failed to store %s event for order %s", topic, orderID), storeErr)
		}
		return
	}
	s.logger.Info(ctx, fmt.Sprintf("%s event published for order: %s", topic, orderID))
}

func (s *orderService) publishWithRetry(ctx context.Context, topic, orderID string, body []byte) error {
	var err error
	for attempt := 1; attempt <= s.retries; attempt++ {
		err = s.publisher.Publish(topic, body)
		if err == nil {
			return nil
		}
		s.logger.Warn(ctx, fmt.Sprintf("Publish %s failed for order %s, attempt %d/%d: %v",
			topic, orderID, attempt, s.retries, err))
		if attempt < s.retries && s.backoff > 0 {
			time.Sleep(time.Duration(attempt) * s.backoff)
		}
	}
	return err
}

// classify passes domain errors through and wraps everything else.
func (s *orderService) classify(ctx context.Context, op string, err error) error {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		stock      *InsufficientStockError
		state      *InvalidStateError
		internalE  *InternalError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound), errors.As(err, &stock), errors.As(err, &state):
		return err
	case errors.As(err, &internalE):
		s.logger.Exception(ctx, op+" failed", err)
		return err
	default:
		s.logger.Exception(ctx, op+" failed", err)
		return internal(op, err)
	}
}

func eventItems(items []OrderItem) []events.OrderItem {
	out := make([]events.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, events.OrderItem{ProductID: item.ProductID, Name: item.Name, Quantity: item.Quantity})
	}
	return out
}
