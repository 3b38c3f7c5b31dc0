package domain

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/inventory"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/user"
)

var fixedNow = time.Date(2024, time.October, 19, 14, 30, 0, 0, time.UTC)

type fakeProducts struct {
	mu       sync.Mutex
	products map[string]*inventory.Product
	failInc  map[string]bool
	getErr   error
}

func newFakeProducts(products ...inventory.Product) *fakeProducts {
	f := &fakeProducts{products: map[string]*inventory.Product{}, failInc: map[string]bool{}}
	for _, p := range products {
		p := p
		f.products[p.ID] = &p
	}
	return f
}

func (f *fakeProducts) GetProductById(_ context.Context, id string) (*inventory.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (f *fakeProducts) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (f *fakeProducts) IncrementStock(_ context.Context, id string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInc[id] {
		return errors.New("increment failed")
	}
	p, ok := f.products[id]
	if !ok {
		return errors.New("no such product")
	}
	p.Stock += qty
	return nil
}

func (f *fakeProducts) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

type fakeStore struct {
	mu        sync.Mutex
	orders    map[string]*Order
	createErr error
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*Order{}}
}

func (f *fakeStore) CreateOrder(_ context.Context, order *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.orders[order.OrderID]; ok {
		return ErrDuplicateOrderID
	}
	f.orders[order.OrderID] = order.clone()
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	return o.clone(), nil
}

func (f *fakeStore) ListOrders(_ context.Context, filter OrderFilter) ([]Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []Order
	for _, o := range f.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.OrderStatus != filter.Status {
			continue
		}
		all = append(all, *o.clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	start := (filter.Page - 1) * filter.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (f *fakeStore) SaveStatusTransition(_ context.Context, order *Order, expected Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return false, f.saveErr
	}
	stored, ok := f.orders[order.OrderID]
	if !ok || stored.OrderStatus != expected {
		return false, nil
	}
	c := order.clone()
	c.Customer = nil
	f.orders[order.OrderID] = c
	return true, nil
}

func (f *fakeStore) SetNotificationStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return errors.New("no such order")
	}
	o.NotificationStatus = status
	return nil
}

func (f *fakeStore) FindOrdersCreatedBetween(_ context.Context, from *time.Time, to time.Time) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Order
	for _, o := range f.orders {
		if from != nil && o.CreatedAt.Before(*from) {
			continue
		}
		if o.CreatedAt.After(to) {
			continue
		}
		out = append(out, *o.clone())
	}
	return out, nil
}

func (f *fakeStore) put(o Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.OrderID] = o.clone()
}

func (f *fakeStore) get(id string) *Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id].clone()
}

type fakeUsers map[string]user.User

func (f fakeUsers) GetUserByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type published struct {
	topic string
	body  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	sent []published
}

func (f *fakePublisher) Publish(topic string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, body: body})
	return nil
}

func (f *fakePublisher) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.sent {
		out = append(out, p.topic)
	}
	return out
}

type fakeEventStore struct {
	mu     sync.Mutex
	events []StoredEvent
	status map[string]string
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{status: map[string]string{}}
}

func (f *fakeEventStore) StoreEventForReplay(_ context.Context, orderID, topic string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := orderID + "-" + topic
	f.events = append(f.events, StoredEvent{ID: id, OrderID: orderID, Topic: topic, EventData: data})
	f.status[id] = "pending"
	return nil
}

func (f *fakeEventStore) GetUnreplayedEvents(_ context.Context, limit int64) ([]StoredEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []StoredEvent
	for _, e := range f.events {
		if s := f.status[e.ID]; s == "pending" || s == "failed" {
			out = append(out, e)
		}
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEventStore) mark(id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = status
	return nil
}

func (f *fakeEventStore) MarkEventAsReplaying(_ context.Context, id string) error {
	return f.mark(id, "replaying")
}

func (f *fakeEventStore) MarkEventAsCompleted(_ context.Context, id string) error {
	return f.mark(id, "completed")
}

func (f *fakeEventStore) MarkEventAsFailed(_ context.Context, id string) error {
	return f.mark(id, "failed")
}

type fakeMetrics struct {
	mu        sync.Mutex
	placed    int
	cancelled int
	changed   []string
	rejected  int
}

func (m *fakeMetrics) OrderPlaced(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placed++
}

func (m *fakeMetrics) OrderStatusChanged(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed = append(m.changed, from+"->"+to)
}

func (m *fakeMetrics) OrderCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
}

func (m *fakeMetrics) StockRejected(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected++
}

// sequenceNumbers returns an order number generator that yields the given
// suffixes in turn and then repeats the last one.
func sequenceNumbers(suffixes ...int) *OrderNumberGenerator {
	var mu sync.Mutex
	i := 0
	return &OrderNumberGenerator{
		prefix: "ORD",
		now:    func() time.Time { return fixedNow },
		intn: func(int) int {
			mu.Lock()
			defer mu.Unlock()
			n := suffixes[i]
			if i < len(suffixes)-1 {
				i++
			}
			return n
		},
	}
}

type fixture struct {
	service   OrderService
	store     *fakeStore
	products  *fakeProducts
	publisher *fakePublisher
	events    *fakeEventStore
	metrics   *fakeMetrics
}

func newFixture(products ...inventory.Product) *fixture {
	f := &fixture{
		store:     newFakeStore(),
		products:  newFakeProducts(products...),
		publisher: &fakePublisher{},
		events:    newFakeEventStore(),
		metrics:   &fakeMetrics{},
	}
	f.service = f.build(sequenceNumbers(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	return f
}

func (f *fixture) build(numbers *OrderNumberGenerator) OrderService {
	return NewOrderService(Dependencies{
		Logger:       log.NewLoggerWithOutput(io.Discard, log.WarnLevel),
		Orders:       f.store,
		Products:     f.products,
		Users:        fakeUsers{"u1": {ID: "u1", Name: "Asha", Phone: "9000000001", Email: "asha@example.com"}},
		Publisher:    f.publisher,
		Events:       f.events,
		Metrics:      f.metrics,
		OrderNumbers: numbers,
		Now:          func() time.Time { return fixedNow },
	})
}

func product(id string, price float64, stock int) inventory.Product {
	return inventory.Product{ID: id, Name: "Product " + id, Price: price, Stock: stock, IsActive: true}
}

func address() DeliveryAddress {
	return DeliveryAddress{Name: "Asha", Phone: "9000000001", Address: "12 MG Road", City: "Pune"}
}
