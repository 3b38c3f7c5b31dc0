package dlq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
)

// EventStore keeps dead-lettered events until they are replayed.
type EventStore interface {
	StoreEventForReplay(ctx context.Context, orderID, topic string, data []byte) error
}

type DLQHandler struct {
	eventStore EventStore
	logger     log.Logger
}

// TopicDLQHandler consumes the DLQ of one topic; the topic is stored with the
// event so replay republishes it where it came from.
type TopicDLQHandler struct {
	*DLQHandler
	topic string
}

func NewDLQHandler(eventStore EventStore, logger log.Logger) *DLQHandler {
	return &DLQHandler{
		eventStore: eventStore,
		logger:     logger,
	}
}

func (d *DLQHandler) ForTopic(topic string) *TopicDLQHandler {
	return &TopicDLQHandler{DLQHandler: d, topic: topic}
}

func (h *TopicDLQHandler) Handle(ctx context.Context, msgBody []byte) error {
	h.logger.Info(ctx, "Processing "+h.topic+" DLQ event")

	orderID := "unknown"
	var envelope struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(msgBody, &envelope); err == nil && envelope.OrderID != "" {
		orderID = envelope.OrderID
	}

	if err := h.eventStore.StoreEventForReplay(ctx, orderID, h.topic, msgBody); err != nil {
		return fmt.Errorf("failed to store %s DLQ event for replay: %w", h.topic, err)
	}
	h.logger.Info(ctx, h.topic+" DLQ event stored for replay, orderID: "+orderID)
	return nil
}
