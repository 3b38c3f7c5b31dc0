package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/messaging"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/events"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/notification"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/user"
	"github.com/google/uuid"
)

type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (*user.User, error)
}

var statusMessages = map[string]string{
	"confirmed":        "has been confirmed",
	"preparing":        "is being prepared",
	"ready":            "is packed and ready",
	"out_for_delivery": "is out for delivery",
	"delivered":        "has been delivered",
}

// OrderEventHandler notifies customers about their orders and admins about
// low stock, then announces each customer notification on notification.sent.
type OrderEventHandler struct {
	notificationService notification.NotificationService
	users               UserDirectory
	publisher           messaging.Publisher
	admin               notification.Recipients
	logger              log.Logger
	now                 func() time.Time
}

func NewOrderEventHandler(
	notificationService notification.NotificationService,
	users UserDirectory,
	publisher messaging.Publisher,
	admin notification.Recipients,
	logger log.Logger,
) *OrderEventHandler {
	return &OrderEventHandler{
		notificationService: notificationService,
		users:               users,
		publisher:           publisher,
		admin:               admin,
		logger:              logger,
		now:                 func() time.Time { return time.Now().Local() },
	}
}

func (h *OrderEventHandler) HandleOrderPlaced(ctx context.Context, msgBody []byte) error {
	var event events.OrderPlacedEvent
	if err := decode(msgBody, &event); err != nil {
		return err
	}
	message := fmt.Sprintf("Your order %s has been placed. Amount payable: Rs. %.2f", event.OrderID, event.TotalAmount)
	return h.notifyCustomer(ctx, event.OrderID, event.UserID, message, notification.TypePlaced,
		[]notification.NotificationChannel{notification.ChannelEmail, notification.ChannelSMS, notification.ChannelPush})
}

func (h *OrderEventHandler) HandleStatusChanged(ctx context.Context, msgBody []byte) error {
	var event events.OrderStatusChangedEvent
	if err := decode(msgBody, &event); err != nil {
		return err
	}
	text, ok := statusMessages[event.To]
	if !ok {
		text = "is now " + event.To
	}
	message := fmt.Sprintf("Your order %s %s.", event.OrderID, text)
	return h.notifyCustomer(ctx, event.OrderID, event.UserID, message, notification.TypeStatusUpdate,
		[]notification.NotificationChannel{notification.ChannelPush, notification.ChannelSMS})
}

func (h *OrderEventHandler) HandleOrderCancelled(ctx context.Context, msgBody []byte) error {
	var event events.OrderCancelledEvent
	if err := decode(msgBody, &event); err != nil {
		return err
	}
	message := fmt.Sprintf("Your order %s has been cancelled.", event.OrderID)
	if event.Reason != "" {
		message += " Reason: " + event.Reason
	}
	return h.notifyCustomer(ctx, event.OrderID, event.UserID, message, notification.TypeCancellation,
		[]notification.NotificationChannel{notification.ChannelEmail, notification.ChannelSMS})
}

// HandleLowStock alerts the store admin; it is not tied to a customer so no
// notification.sent follows.
func (h *OrderEventHandler) HandleLowStock(ctx context.Context, msgBody []byte) error {
	var event events.InventoryLowStockEvent
	if err := decode(msgBody, &event); err != nil {
		return err
	}
	request := notification.NotificationRequest{
		OrderID:     event.OrderID,
		ProductID:   event.ProductID,
		Message:     fmt.Sprintf("%s (%s) is down to %d units", event.Name, event.ProductID, event.Stock),
		MessageType: notification.TypeLowStock,
	}
	return h.notificationService.SendMultiChannelNotification(ctx, request, h.admin,
		[]notification.NotificationChannel{notification.ChannelEmail, notification.ChannelPush})
}

func (h *OrderEventHandler) notifyCustomer(ctx context.Context, orderID, userID, message, messageType string, channels []notification.NotificationChannel) error {
	recipients := notification.Recipients{UserID: userID}
	if h.users != nil && userID != "" {
		u, err := h.users.GetUserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load customer %s: %w", userID, err)
		}
		if u != nil {
			recipients.Email = u.Email
			recipients.Phone = u.Phone
		}
	}

	request := notification.NotificationRequest{OrderID: orderID, Message: message, MessageType: messageType}
	if err := h.notificationService.SendMultiChannelNotification(ctx, request, recipients, channels); err != nil {
		return err
	}

	sent := events.NotificationSentEvent{
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		Message:   message,
		Version:   1,
		TimeStamp: h.now(),
	}
	if err := sent.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(sent)
	if err != nil {
		return fmt.Errorf("failed to marshal NotificationSentEvent: %w", err)
	}
	if err := h.publisher.Publish(events.NotificationSent, body); err != nil {
		return fmt.Errorf("failed to publish NotificationSentEvent: %w", err)
	}

	h.logger.Info(ctx, "Notification sent and event published for order: "+orderID)
	return nil
}

type validatable interface {
	Validate() error
}

func decode(msgBody []byte, event validatable) error {
	if err := json.Unmarshal(msgBody, event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event.Validate()
}
