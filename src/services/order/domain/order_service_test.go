package domain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// racingStore loses every conditional status write.
type racingStore struct {
	*fakeStore
}

func (racingStore) SaveStatusTransition(context.Context, *Order, Status) (bool, error) {
	return false, nil
}

func placeInput(items ...ItemRequest) CreateOrderInput {
	return CreateOrderInput{UserID: "u1", Items: items, DeliveryAddress: address()}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("prices the order and debits stock", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10))

		order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 3}))
		require.NoError(t, err)

		assert.Equal(t, "ORD241019001", order.OrderID)
		assert.Equal(t, float64(300), order.Subtotal)
		assert.Equal(t, float64(30), order.DeliveryCharge)
		assert.Equal(t, float64(15), order.Tax)
		assert.Equal(t, float64(345), order.TotalAmount)
		assert.Equal(t, StatusPending, order.OrderStatus)
		assert.Equal(t, PaymentCashOnDelivery, order.PaymentMethod)
		assert.Equal(t, PaymentPending, order.PaymentStatus)
		require.Len(t, order.StatusHistory, 1)
		assert.Equal(t, 7, f.products.stock("p1"))

		require.Len(t, order.Items, 1)
		assert.Equal(t, "Product p1", order.Items[0].Name)
		assert.Equal(t, float64(100), order.Items[0].UnitPrice)
		assert.Equal(t, float64(300), order.Items[0].LineTotal)

		require.NotNil(t, order.Customer)
		assert.Equal(t, "Asha", order.Customer.Name)

		assert.NotNil(t, f.store.get(order.OrderID))
		assert.Equal(t, []string{events.OrderPlaced}, f.publisher.topics())
		assert.Equal(t, 1, f.metrics.placed)
	})

	t.Run("free delivery above threshold", func(t *testing.T) {
		f := newFixture(product("p1", 300, 5))

		order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 2}))
		require.NoError(t, err)

		assert.Equal(t, float64(600), order.Subtotal)
		assert.Zero(t, order.DeliveryCharge)
		assert.Equal(t, float64(30), order.Tax)
		assert.Equal(t, float64(630), order.TotalAmount)
	})

	t.Run("price is frozen at order time", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10))

		order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 1}))
		require.NoError(t, err)

		f.products.mu.Lock()
		f.products.products["p1"].Price = 999
		f.products.mu.Unlock()

		stored := f.store.get(order.OrderID)
		assert.Equal(t, float64(100), stored.Items[0].UnitPrice)
	})

	t.Run("validation errors", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10))

		testCases := []struct {
			name  string
			input CreateOrderInput
			field string
		}{
			{"no items", placeInput(), "items"},
			{"zero quantity", placeInput(ItemRequest{ProductID: "p1"}), "items[0].quantity"},
			{"missing product id", placeInput(ItemRequest{Quantity: 1}), "items[0].productId"},
			{"missing user", CreateOrderInput{Items: []ItemRequest{{ProductID: "p1", Quantity: 1}}, DeliveryAddress: address()}, "userId"},
			{"missing phone", CreateOrderInput{UserID: "u1", Items: []ItemRequest{{ProductID: "p1", Quantity: 1}}, DeliveryAddress: DeliveryAddress{Name: "A", Address: "x"}}, "deliveryAddress.phone"},
			{"bad payment method", CreateOrderInput{UserID: "u1", Items: []ItemRequest{{ProductID: "p1", Quantity: 1}}, DeliveryAddress: address(), PaymentMethod: "cheque"}, "paymentMethod"},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.service.ReserveStockAndCreateOrder(ctx, tc.input)
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tc.field, vErr.Field)
			})
		}
		assert.Equal(t, 10, f.products.stock("p1"))
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10))

		_, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(
			ItemRequest{ProductID: "p1", Quantity: 1},
			ItemRequest{ProductID: "missing", Quantity: 1},
		))
		var nfErr *NotFoundError
		require.ErrorAs(t, err, &nfErr)
		assert.Equal(t, "missing", nfErr.ID)
		assert.Equal(t, 10, f.products.stock("p1"))
	})

	t.Run("insufficient stock leaves every product untouched", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10), product("p2", 50, 2))

		_, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(
			ItemRequest{ProductID: "p1", Quantity: 4},
			ItemRequest{ProductID: "p2", Quantity: 3},
		))
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, "p2", stockErr.ProductID)
		assert.Equal(t, 3, stockErr.Requested)
		assert.Equal(t, 2, stockErr.Available)

		assert.Equal(t, 10, f.products.stock("p1"))
		assert.Equal(t, 2, f.products.stock("p2"))
		assert.Empty(t, f.store.orders)
		assert.Empty(t, f.publisher.topics())
	})

	t.Run("same product twice cannot exceed stock", func(t *testing.T) {
		f := newFixture(product("p1", 100, 5))

		_, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(
			ItemRequest{ProductID: "p1", Quantity: 3},
			ItemRequest{ProductID: "p1", Quantity: 3},
		))
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 5, f.products.stock("p1"))
	})
}

func TestCreateOrderConcurrentRequestsNeverOversell(t *testing.T) {
	const stock = 5
	f := newFixture(product("p1", 100, stock))
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: stock}))
			mu.Lock()
			defer mu.Unlock()
			var stockErr *InsufficientStockError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &stockErr):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, f.products.stock("p1"))
}

func TestCreateOrderRetriesDuplicateOrderID(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh number on conflict", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10))
		f.store.put(Order{OrderID: "ORD241019001", UserID: "other", OrderStatus: StatusPending})
		f.service = f.build(sequenceNumbers(1, 2))

		order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 2}))
		require.NoError(t, err)
		assert.Equal(t, "ORD241019002", order.OrderID)
		assert.Equal(t, 8, f.products.stock("p1"))
	})

	t.Run("gives up and restores stock", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10))
		f.store.put(Order{OrderID: "ORD241019001", UserID: "other", OrderStatus: StatusPending})
		f.service = f.build(sequenceNumbers(1))

		_, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 2}))
		var iErr *InternalError
		require.ErrorAs(t, err, &iErr)
		assert.ErrorIs(t, err, ErrDuplicateOrderID)
		assert.Equal(t, 10, f.products.stock("p1"))
	})

	t.Run("insert failure restores stock", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10), product("p2", 20, 4))
		f.store.createErr = errors.New("connection reset")

		_, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(
			ItemRequest{ProductID: "p1", Quantity: 2},
			ItemRequest{ProductID: "p2", Quantity: 4},
		))
		var iErr *InternalError
		require.ErrorAs(t, err, &iErr)
		assert.Equal(t, 10, f.products.stock("p1"))
		assert.Equal(t, 4, f.products.stock("p2"))
	})

	t.Run("insert failure with a failing credit still restores the rest", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10), product("p2", 20, 4))
		f.store.createErr = errors.New("connection reset")
		f.products.failInc["p1"] = true

		_, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(
			ItemRequest{ProductID: "p1", Quantity: 2},
			ItemRequest{ProductID: "p2", Quantity: 4},
		))
		var iErr *InternalError
		require.ErrorAs(t, err, &iErr)
		assert.Equal(t, 4, f.products.stock("p2"))
		assert.Empty(t, f.store.orders)
	})
}

func TestCreateOrderStoresEventWhenPublishFails(t *testing.T) {
	f := newFixture(product("p1", 100, 10))
	f.publisher.err = errors.New("broker down")

	order, err := f.service.ReserveStockAndCreateOrder(context.Background(), placeInput(ItemRequest{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	require.Len(t, f.events.events, 1)
	stored := f.events.events[0]
	assert.Equal(t, order.OrderID, stored.OrderID)
	assert.Equal(t, events.OrderPlaced, stored.Topic)

	var evt events.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(stored.EventData, &evt))
	assert.Equal(t, order.OrderID, evt.OrderID)
	assert.Equal(t, "u1", evt.UserID)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	newPlaced := func(t *testing.T) (*fixture, *Order) {
		f := newFixture(product("p1", 100, 10))
		order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 3}))
		require.NoError(t, err)
		return f, order
	}

	t.Run("forward move", func(t *testing.T) {
		f, order := newPlaced(t)

		updated, err := f.service.UpdateStatus(ctx, order.OrderID, StatusChange{Status: "confirmed", Notes: "accepted"})
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, updated.OrderStatus)
		require.Len(t, updated.StatusHistory, 2)
		assert.Equal(t, "accepted", updated.StatusHistory[1].Note)
		assert.Equal(t, StatusConfirmed, f.store.get(order.OrderID).OrderStatus)
		assert.Equal(t, []string{"pending->confirmed"}, f.metrics.changed)
		assert.Contains(t, f.publisher.topics(), events.OrderStatusChanged)
	})

	t.Run("out for delivery", func(t *testing.T) {
		f, order := newPlaced(t)

		updated, err := f.service.UpdateStatus(ctx, order.OrderID, StatusChange{
			Status: "out_for_delivery", DeliveryBoy: "Ravi", DeliveryPhone: "9111111111",
		})
		require.NoError(t, err)
		require.NotNil(t, updated.EstimatedDelivery)
		assert.Equal(t, fixedNow.Add(EstimatedDeliveryWindow), *updated.EstimatedDelivery)
		assert.Equal(t, "Ravi", updated.DeliveryBoy)
	})

	t.Run("delivered twice is idempotent", func(t *testing.T) {
		f, order := newPlaced(t)

		first, err := f.service.UpdateStatus(ctx, order.OrderID, StatusChange{Status: "delivered"})
		require.NoError(t, err)
		require.NotNil(t, first.DeliveredAt)
		assert.Equal(t, PaymentPaid, first.PaymentStatus)

		second, err := f.service.UpdateStatus(ctx, order.OrderID, StatusChange{Status: "delivered"})
		require.NoError(t, err)
		assert.Equal(t, *first.DeliveredAt, *second.DeliveredAt)
		assert.Len(t, second.StatusHistory, 2)
		assert.Len(t, f.metrics.changed, 1)
	})

	t.Run("backward move rejected", func(t *testing.T) {
		f, order := newPlaced(t)
		_, err := f.service.UpdateStatus(ctx, order.OrderID, StatusChange{Status: "preparing"})
		require.NoError(t, err)

		_, err = f.service.UpdateStatus(ctx, order.OrderID, StatusChange{Status: "confirmed"})
		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StatusPreparing, stateErr.From)
		assert.Equal(t, StatusConfirmed, stateErr.To)
	})

	t.Run("terminal order rejected", func(t *testing.T) {
		f, order := newPlaced(t)
		_, err := f.service.UpdateStatus(ctx, order.OrderID, StatusChange{Status: "delivered"})
		require.NoError(t, err)

		_, err = f.service.UpdateStatus(ctx, order.OrderID, StatusChange{Status: "pending"})
		var stateErr *InvalidStateError
		assert.ErrorAs(t, err, &stateErr)
	})

	t.Run("cancelled via update restores stock", func(t *testing.T) {
		f, order := newPlaced(t)

		updated, err := f.service.UpdateStatus(ctx, order.OrderID, StatusChange{Status: "cancelled", Notes: "out of area"})
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, updated.OrderStatus)
		assert.Equal(t, "out of area", updated.CancellationReason)
		assert.Equal(t, 10, f.products.stock("p1"))
	})

	t.Run("unknown status", func(t *testing.T) {
		f, order := newPlaced(t)
		_, err := f.service.UpdateStatus(ctx, order.OrderID, StatusChange{Status: "shipped"})
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("unknown order", func(t *testing.T) {
		f, _ := newPlaced(t)
		_, err := f.service.UpdateStatus(ctx, "ORD000000000", StatusChange{Status: "confirmed"})
		var nfErr *NotFoundError
		assert.ErrorAs(t, err, &nfErr)
	})

	t.Run("lost race", func(t *testing.T) {
		f, order := newPlaced(t)
		service := NewOrderService(Dependencies{
			Logger:   log.NewLoggerWithOutput(io.Discard, log.WarnLevel),
			Orders:   racingStore{f.store},
			Products: f.products,
			Now:      func() time.Time { return fixedNow },
		})

		_, err := service.UpdateStatus(ctx, order.OrderID, StatusChange{Status: "confirmed"})
		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.NotEmpty(t, stateErr.Reason)

		_, err = service.CancelOrder(ctx, order.OrderID, Actor{Admin: true}, "")
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, 7, f.products.stock("p1"))
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("restores every item", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10), product("p2", 40, 6))
		order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(
			ItemRequest{ProductID: "p1", Quantity: 3},
			ItemRequest{ProductID: "p2", Quantity: 2},
		))
		require.NoError(t, err)
		assert.Equal(t, 7, f.products.stock("p1"))
		assert.Equal(t, 4, f.products.stock("p2"))

		cancelled, err := f.service.CancelOrder(ctx, order.OrderID, Actor{UserID: "u1"}, "ordered by mistake")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.OrderStatus)
		require.NotNil(t, cancelled.CancelledAt)
		assert.Equal(t, "ordered by mistake", cancelled.CancellationReason)
		assert.Equal(t, 10, f.products.stock("p1"))
		assert.Equal(t, 6, f.products.stock("p2"))
		assert.Equal(t, 1, f.metrics.cancelled)
		assert.Contains(t, f.publisher.topics(), events.OrderCancelled)
	})

	t.Run("second cancel does not restore twice", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10))
		order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 3}))
		require.NoError(t, err)

		_, err = f.service.CancelOrder(ctx, order.OrderID, Actor{Admin: true}, "")
		require.NoError(t, err)
		_, err = f.service.CancelOrder(ctx, order.OrderID, Actor{Admin: true}, "")

		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, 10, f.products.stock("p1"))
	})

	t.Run("delivered order", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10))
		order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 3}))
		require.NoError(t, err)
		_, err = f.service.UpdateStatus(ctx, order.OrderID, StatusChange{Status: "delivered"})
		require.NoError(t, err)

		_, err = f.service.CancelOrder(ctx, order.OrderID, Actor{Admin: true}, "late")
		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StatusDelivered, stateErr.From)
		assert.Equal(t, 7, f.products.stock("p1"))
	})

	t.Run("another user's order", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10))
		order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 3}))
		require.NoError(t, err)

		_, err = f.service.CancelOrder(ctx, order.OrderID, Actor{UserID: "u2"}, "")
		var nfErr *NotFoundError
		require.ErrorAs(t, err, &nfErr)
		assert.Equal(t, StatusPending, f.store.get(order.OrderID).OrderStatus)
	})

	t.Run("paid online order is refunded", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10))
		f.store.put(Order{
			OrderID: "ORD241019500", UserID: "u1", OrderStatus: StatusConfirmed,
			PaymentMethod: PaymentOnline, PaymentStatus: PaymentPaid,
			Items: []OrderItem{{ProductID: "p1", Quantity: 1}},
		})

		cancelled, err := f.service.CancelOrder(ctx, "ORD241019500", Actor{Admin: true}, "")
		require.NoError(t, err)
		assert.Equal(t, PaymentRefunded, cancelled.PaymentStatus)
		assert.Equal(t, 11, f.products.stock("p1"))
	})

	t.Run("failed restore leaves the order cancellable", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10), product("p2", 40, 6))
		order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(
			ItemRequest{ProductID: "p1", Quantity: 3},
			ItemRequest{ProductID: "p2", Quantity: 2},
		))
		require.NoError(t, err)
		f.products.failInc["p2"] = true

		_, err = f.service.CancelOrder(ctx, order.OrderID, Actor{UserID: "u1"}, "")
		var iErr *InternalError
		require.ErrorAs(t, err, &iErr)
		assert.Equal(t, StatusPending, f.store.get(order.OrderID).OrderStatus)
		assert.Equal(t, 7, f.products.stock("p1"))
		assert.Equal(t, 4, f.products.stock("p2"))
		assert.NotContains(t, f.publisher.topics(), events.OrderCancelled)
		assert.Zero(t, f.metrics.cancelled)

		f.products.failInc["p2"] = false
		cancelled, err := f.service.CancelOrder(ctx, order.OrderID, Actor{UserID: "u1"}, "")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.OrderStatus)
		assert.Equal(t, 10, f.products.stock("p1"))
		assert.Equal(t, 6, f.products.stock("p2"))
	})

	t.Run("failed status write takes the stock back", func(t *testing.T) {
		f := newFixture(product("p1", 100, 10))
		order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 3}))
		require.NoError(t, err)
		f.store.saveErr = errors.New("write concern timeout")

		_, err = f.service.CancelOrder(ctx, order.OrderID, Actor{Admin: true}, "")
		var iErr *InternalError
		require.ErrorAs(t, err, &iErr)
		assert.Equal(t, StatusPending, f.store.get(order.OrderID).OrderStatus)
		assert.Equal(t, 7, f.products.stock("p1"))
	})
}

func TestGetOrderVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(product("p1", 100, 10))
	order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	got, err := f.service.GetOrder(ctx, order.OrderID, Actor{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, got.OrderID)
	require.NotNil(t, got.Customer)

	_, err = f.service.GetOrder(ctx, order.OrderID, Actor{Admin: true})
	require.NoError(t, err)

	_, err = f.service.GetOrder(ctx, order.OrderID, Actor{UserID: "u2"})
	var nfErr *NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(product("p1", 100, 100))
	for i := 0; i < 3; i++ {
		_, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 1}))
		require.NoError(t, err)
	}
	f.store.put(Order{OrderID: "ORD241019900", UserID: "u2", OrderStatus: StatusDelivered, CreatedAt: fixedNow})

	page, err := f.service.ListOrders(ctx, OrderFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, Pagination{Current: 1, Pages: 2, Total: 4, Limit: 2}, page.Pagination)

	page, err = f.service.ListOrders(ctx, OrderFilter{Status: StatusDelivered})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)
	assert.Equal(t, defaultPageLimit, page.Pagination.Limit)

	mine, err := f.service.ListUserOrders(ctx, "u1", 0, 500)
	require.NoError(t, err)
	assert.Len(t, mine.Orders, 3)
	assert.Equal(t, maxPageLimit, mine.Pagination.Limit)

	_, err = f.service.ListOrders(ctx, OrderFilter{Status: "shipped"})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	yesterday := fixedNow.AddDate(0, 0, -1)
	f.store.put(Order{OrderID: "a", OrderStatus: StatusDelivered, TotalAmount: 345, CreatedAt: fixedNow.Add(-time.Second)})
	f.store.put(Order{OrderID: "b", OrderStatus: StatusPending, TotalAmount: 100, CreatedAt: fixedNow.Add(-2 * time.Second)})
	f.store.put(Order{OrderID: "c", OrderStatus: StatusDelivered, TotalAmount: 630, CreatedAt: yesterday})

	today, err := f.service.GetStats(ctx, "today")
	require.NoError(t, err)
	assert.Equal(t, PeriodToday, today.Period)
	assert.Equal(t, 2, today.TotalOrders)
	assert.Equal(t, float64(345), today.Revenue)

	week, err := f.service.GetStats(ctx, "week")
	require.NoError(t, err)
	assert.Equal(t, 3, week.TotalOrders)
	assert.Equal(t, float64(975), week.Revenue)
	assert.Equal(t, 2, week.ByStatus[StatusDelivered])
}

func TestReplayFailedEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(product("p1", 100, 10))
	f.publisher.err = errors.New("broker down")

	order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)
	_, err = f.service.CancelOrder(ctx, order.OrderID, Actor{Admin: true}, "")
	require.NoError(t, err)
	require.Len(t, f.events.events, 2)

	t.Run("failures are kept for the next run", func(t *testing.T) {
		result, err := f.service.ReplayFailedEvents(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReplayResult{Total: 2, Failed: 2}, *result)
		assert.Equal(t, "failed", f.events.status[f.events.events[0].ID])
	})

	t.Run("events go back to their topic", func(t *testing.T) {
		f.publisher.err = nil

		result, err := f.service.ReplayFailedEvents(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReplayResult{Total: 2, Replayed: 2}, *result)
		assert.Equal(t, []string{events.OrderPlaced, events.OrderCancelled}, f.publisher.topics())

		result, err = f.service.ReplayFailedEvents(ctx)
		require.NoError(t, err)
		assert.Zero(t, result.Total)
	})
}

func TestRecordNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(product("p1", 100, 10))
	order, err := f.service.ReserveStockAndCreateOrder(ctx, placeInput(ItemRequest{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	require.NoError(t, f.service.RecordNotification(ctx, order.OrderID, "sent"))
	assert.Equal(t, "sent", f.store.get(order.OrderID).NotificationStatus)

	var iErr *InternalError
	assert.ErrorAs(t, f.service.RecordNotification(ctx, "missing", "sent"), &iErr)
}
