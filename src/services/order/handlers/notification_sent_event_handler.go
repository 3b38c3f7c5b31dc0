package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/events"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/order/domain"
)

const NotificationStatusSent = "sent"

type NotificationSentEventHandler struct {
	orderService domain.OrderService
	logger       log.Logger
}

func NewNotificationSentEventHandler(
	orderService domain.OrderService,
	logger log.Logger,
) *NotificationSentEventHandler {
	return &NotificationSentEventHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// Handle records on the order that its customer was notified.
func (h *NotificationSentEventHandler) Handle(ctx context.Context, msgBody []byte) error {
	var event events.NotificationSentEvent
	if err := json.Unmarshal(msgBody, &event); err != nil {
		return fmt.Errorf("failed to unmarshal NotificationSentEvent: %w", err)
	}
	if err := event.Validate(); err != nil {
		return err
	}

	if err := h.orderService.RecordNotification(ctx, event.OrderID, NotificationStatusSent); err != nil {
		return err
	}

	h.logger.Info(ctx, "Order updated with notification status for order: "+event.OrderID)
	return nil
}
