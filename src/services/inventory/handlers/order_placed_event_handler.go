package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/messaging"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/events"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/inventory"
	"github.com/google/uuid"
)

// OrderPlacedEventHandler watches stock after each order and raises
// inventory.low_stock for products that fell below the threshold.
type OrderPlacedEventHandler struct {
	publisher        messaging.Publisher
	inventoryService inventory.InventoryService
	threshold        int
	logger           log.Logger
}

func NewOrderPlacedEventHandler(
	publisher messaging.Publisher,
	inventoryService inventory.InventoryService,
	threshold int,
	logger log.Logger,
) *OrderPlacedEventHandler {
	return &OrderPlacedEventHandler{
		publisher:        publisher,
		inventoryService: inventoryService,
		threshold:        threshold,
		logger:           logger,
	}
}

// Handle processes the OrderPlacedEvent message
func (h *OrderPlacedEventHandler) Handle(ctx context.Context, msgBody []byte) error {
	var event events.OrderPlacedEvent
	if err := json.Unmarshal(msgBody, &event); err != nil {
		return fmt.Errorf("failed to unmarshal OrderPlacedEvent: %w", err)
	}
	if err := event.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(event.Items))
	for _, item := range event.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true

		product, err := h.inventoryService.GetProductStock(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("failed to read stock of product %s: %w", item.ProductID, err)
		}
		if product == nil {
			h.logger.Warn(ctx, "Product "+item.ProductID+" of order "+event.OrderID+" no longer exists")
			continue
		}
		if product.Stock >= h.threshold {
			continue
		}
		if err := h.publishLowStock(ctx, event.OrderID, product); err != nil {
			return err
		}
	}
	return nil
}

func (h *OrderPlacedEventHandler) publishLowStock(ctx context.Context, orderID string, product *inventory.Product) error {
	lowStock := events.InventoryLowStockEvent{
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		ProductID: product.ID,
		Name:      product.Name,
		Stock:     product.Stock,
		Threshold: h.threshold,
		Version:   1,
		TimeStamp: time.Now().Local(),
	}
	eventJSON, err := json.Marshal(lowStock)
	if err != nil {
		return fmt.Errorf("failed to marshal InventoryLowStockEvent: %w", err)
	}
	if err := h.publisher.Publish(events.InventoryLowStock, eventJSON); err != nil {
		return fmt.Errorf("failed to publish InventoryLowStockEvent: %w", err)
	}

	h.logger.WarnWithExtra(ctx, "Product stock below threshold", map[string]any{
		"ProductId": product.ID,
		"Stock":     product.Stock,
		"Threshold": h.threshold,
		"OrderId":   orderID,
	})
	return nil
}
