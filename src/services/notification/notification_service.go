package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
)

// NotificationChannel represents different notification delivery methods
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
	ChannelPush  NotificationChannel = "push"
)

// Message types drive subjects and titles.
const (
	TypePlaced       = "placed"
	TypeStatusUpdate = "status_update"
	TypeCancellation = "cancellation"
	TypeLowStock     = "low_stock"
)

// NotificationRequest represents a notification to be sent
type NotificationRequest struct {
	OrderID     string              `json:"orderId,omitempty"`
	ProductID   string              `json:"productId,omitempty"`
	Message     string              `json:"message"`
	Channel     NotificationChannel `json:"channel"`
	Recipient   string              `json:"recipient"`
	MessageType string              `json:"messageType"`
}

// Recipients resolves the address of a request for each channel.
type Recipients struct {
	Email  string
	Phone  string
	UserID string
}

func (r Recipients) For(channel NotificationChannel) string {
	switch channel {
	case ChannelEmail:
		return r.Email
	case ChannelSMS:
		return r.Phone
	default:
		return r.UserID
	}
}

// Sender delivers a rendered notification over one channel.
type Sender interface {
	Send(ctx context.Context, subject string, request NotificationRequest) error
}

// NotificationService defines the interface for sending notifications
type NotificationService interface {
	SendNotification(ctx context.Context, request NotificationRequest) error
	SendMultiChannelNotification(ctx context.Context, request NotificationRequest, recipients Recipients, channels []NotificationChannel) error
}

// NotificationServiceImpl implements the NotificationService interface
type NotificationServiceImpl struct {
	logger  log.Logger
	senders map[NotificationChannel]Sender
}

// NewNotificationService creates a service whose channels log the
// notification; pass senders to replace individual channels.
func NewNotificationService(logger log.Logger, senders map[NotificationChannel]Sender) NotificationService {
	all := map[NotificationChannel]Sender{
		ChannelEmail: logSender{logger: logger, channel: ChannelEmail},
		ChannelSMS:   logSender{logger: logger, channel: ChannelSMS},
		ChannelPush:  logSender{logger: logger, channel: ChannelPush},
	}
	for channel, sender := range senders {
		all[channel] = sender
	}
	return &NotificationServiceImpl{logger: logger, senders: all}
}

// SendNotification sends a notification through the specified channel
func (n *NotificationServiceImpl) SendNotification(ctx context.Context, request NotificationRequest) error {
	sender, ok := n.senders[request.Channel]
	if !ok {
		n.logger.Warn(ctx, "Unknown notification channel: "+string(request.Channel))
		return nil
	}
	if strings.TrimSpace(request.Recipient) == "" {
		n.logger.Warn(ctx, fmt.Sprintf("No %s recipient for %s notification, skipping", request.Channel, request.MessageType))
		return nil
	}
	return sender.Send(ctx, subjectFor(request.Channel, request.MessageType), request)
}

// SendMultiChannelNotification tries every channel and fails only when none
// of them delivered.
func (n *NotificationServiceImpl) SendMultiChannelNotification(ctx context.Context, request NotificationRequest, recipients Recipients, channels []NotificationChannel) error {
	var errs []error
	for _, channel := range channels {
		request.Channel = channel
		request.Recipient = recipients.For(channel)
		if err := n.SendNotification(ctx, request); err != nil {
			n.logger.Exception(ctx, "Failed to send notification via "+string(channel), err)
			errs = append(errs, err)
		}
	}
	if len(channels) > 0 && len(errs) == len(channels) {
		return errors.Join(errs...)
	}
	return nil
}

type logSender struct {
	logger  log.Logger
	channel NotificationChannel
}

func (s logSender) Send(ctx context.Context, subject string, request NotificationRequest) error {
	s.logger.InfoWithExtra(ctx, strings.ToUpper(string(s.channel))+" NOTIFICATION - "+subject, map[string]any{
		"OrderId":     request.OrderID,
		"ProductId":   request.ProductID,
		"Recipient":   request.Recipient,
		"Message":     request.Message,
		"MessageType": request.MessageType,
	})
	return nil
}

func subjectFor(channel NotificationChannel, messageType string) string {
	if channel == ChannelPush {
		return getPushTitle(messageType)
	}
	return getEmailSubject(messageType)
}

func getEmailSubject(messageType string) string {
	switch messageType {
	case TypePlaced:
		return "Order Confirmation"
	case TypeCancellation:
		return "Order Cancellation"
	case TypeLowStock:
		return "Low Stock Alert"
	default:
		return "Order Update"
	}
}

func getPushTitle(messageType string) string {
	switch messageType {
	case TypePlaced:
		return "Order Placed"
	case TypeCancellation:
		return "Order Cancelled"
	case TypeLowStock:
		return "Stock Running Low"
	default:
		return "Order Update"
	}
}
