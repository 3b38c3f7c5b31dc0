package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/messaging"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/events"
	"github.com/google/uuid"
)

// Broker is what the listener needs from RabbitMQ or Kafka.
type Broker interface {
	messaging.Publisher
	Consume(ctx context.Context, topic string) (<-chan messaging.Message, error)
}

// OrderedBroker is implemented by brokers that commit by position. The
// listener handles their messages one at a time so nothing is committed past
// a message still in flight.
type OrderedBroker interface {
	Ordered() bool
}

// EventHandler processes one message body. A returned error sends the
// message to the topic's DLQ.
type EventHandler interface {
	Handle(ctx context.Context, msgBody []byte) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, msgBody []byte) error

func (f HandlerFunc) Handle(ctx context.Context, msgBody []byte) error {
	return f(ctx, msgBody)
}

// Handlers runs every handler on the same message, for topics with more
// than one consumer. All handlers run even if one fails.
type Handlers []EventHandler

func (hs Handlers) Handle(ctx context.Context, msgBody []byte) error {
	var errs []error
	for _, h := range hs {
		errs = append(errs, h.Handle(ctx, msgBody))
	}
	return errors.Join(errs...)
}

type EventMetrics interface {
	EventHandled(topic, outcome string)
}

const (
	OutcomeHandled      = "handled"
	OutcomeDeadLettered = "dead_lettered"
	OutcomeRequeued     = "requeued"
)

type EventListener struct {
	broker     Broker
	logger     log.Logger
	metrics    EventMetrics
	handlers   map[string]EventHandler
	maxRetries int
	retryDelay time.Duration
	ordered    bool
	inflight   sync.WaitGroup
}

func NewEventListener(broker Broker, logger log.Logger, metrics EventMetrics) *EventListener {
	el := &EventListener{
		broker:     broker,
		logger:     logger,
		metrics:    metrics,
		handlers:   make(map[string]EventHandler),
		maxRetries: 5,
		retryDelay: 2 * time.Second,
	}
	if ob, ok := broker.(OrderedBroker); ok {
		el.ordered = ob.Ordered()
	}
	return el
}

// RegisterHandler registers an event handler for a specific topic
func (el *EventListener) RegisterHandler(topic string, handler EventHandler) {
	el.handlers[topic] = handler
}

// StartListening consumes every registered topic until ctx is cancelled and
// in-flight messages have finished.
func (el *EventListener) StartListening(ctx context.Context) error {
	var wg sync.WaitGroup

	for topic, handler := range el.handlers {
		wg.Add(1)
		go func(topic string, h EventHandler) {
			defer wg.Done()
			el.listenToQueue(ctx, topic, h)
		}(topic, handler)
	}

	wg.Wait()
	el.inflight.Wait()
	return nil
}

// listenToQueue (re)subscribes with exponential backoff when the broker
// refuses or drops the subscription.
func (el *EventListener) listenToQueue(ctx context.Context, topic string, handler EventHandler) {
	retryDelay := el.retryDelay
	el.logger.Info(ctx, "Starting to listen for events on queue: "+topic)

	for attempt := 1; attempt <= el.maxRetries; attempt++ {
		msgs, err := el.broker.Consume(ctx, topic)
		if err != nil {
			el.logger.Exception(ctx, fmt.Sprintf("Failed to start consuming queue: %s (attempt %d/%d)", topic, attempt, el.maxRetries), err)
			if attempt == el.maxRetries {
				el.logger.Exception(ctx, "Max retries reached for queue: "+topic+", giving up", err)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
			continue
		}

		el.logger.Info(ctx, "Successfully started consuming queue: "+topic)
		attempt = 0
		retryDelay = el.retryDelay

	consume:
		for {
			select {
			case <-ctx.Done():
				el.logger.Info(ctx, "Stopping event listener for queue: "+topic)
				return
			case msg, ok := <-msgs:
				if !ok {
					el.logger.Warn(ctx, "Message channel closed for queue: "+topic+", attempting to reconnect...")
					break consume
				}
				if el.ordered {
					el.dispatch(ctx, topic, handler, msg)
					continue
				}
				el.inflight.Add(1)
				go func() {
					defer el.inflight.Done()
					el.dispatch(ctx, topic, handler, msg)
				}()
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

func (el *EventListener) dispatch(ctx context.Context, topic string, handler EventHandler, msg messaging.Message) {
	ctx = el.logger.WithCorrelationID(ctx, uuid.NewString())

	err := handler.Handle(ctx, msg.Body)
	if err == nil {
		el.settle(ctx, topic, OutcomeHandled, msg.Ack)
		return
	}

	el.logger.Exception(ctx, "Handler failed for queue: "+topic, err)
	if strings.HasSuffix(topic, events.DLQSuffix) {
		el.settle(ctx, topic, OutcomeRequeued, msg.Nack)
		return
	}
	if pubErr := el.broker.Publish(events.DLQ(topic), msg.Body); pubErr != nil {
		el.logger.Exception(ctx, "Failed to send event to DLQ: "+events.DLQ(topic), pubErr)
		el.settle(ctx, topic, OutcomeRequeued, msg.Nack)
		return
	}
	el.settle(ctx, topic, OutcomeDeadLettered, msg.Ack)
}

func (el *EventListener) settle(ctx context.Context, topic, outcome string, settle func() error) {
	if err := settle(); err != nil {
		el.logger.Warn(ctx, fmt.Sprintf("Failed to settle message on %s: %v", topic, err))
	}
	if el.metrics != nil {
		el.metrics.EventHandled(topic, outcome)
	}
}
