package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/messaging"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/events"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// RabbitMQServiceImpl publishes to a topic exchange and consumes one durable
// queue per routed event.
type RabbitMQServiceImpl struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
}

// queueSpec is one queue of the topology and the routing key bound to it.
type queueSpec struct {
	name       string
	routingKey string
	deadLetter bool
}

// topology lists the queues for the given event topics: each topic gets a
// queue dead-lettering to the DLX and a <topic>.dlq queue the handlers
// publish failures to.
func topology(topics []string) []queueSpec {
	specs := make([]queueSpec, 0, len(topics)*2)
	for _, topic := range topics {
		specs = append(specs,
			queueSpec{name: topic, routingKey: topic, deadLetter: true},
			queueSpec{name: events.DLQ(topic), routingKey: events.DLQ(topic)},
		)
	}
	return specs
}

func deadLetterExchange(exchange string) string {
	return exchange + ".dlx"
}

func NewRabbitMQService(host, exchange, queueName string, topics []string) (*RabbitMQServiceImpl, error) {
	conn, err := amqp.Dial(host)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	s := &RabbitMQServiceImpl{conn: conn, channel: ch, exchange: exchange}
	if err := s.declare(queueName, topics); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *RabbitMQServiceImpl) declare(queueName string, topics []string) error {
	ch := s.channel
	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare an exchange: %w", err)
	}

	// messages nacked without requeue land in <queueName>.dlq via the DLX
	dlxName := deadLetterExchange(s.exchange)
	if err := ch.ExchangeDeclare(dlxName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare a dead-letter exchange: %w", err)
	}
	dlqName := events.DLQ(queueName)
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare a dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(dlqName, "", dlxName, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead-letter queue: %w", err)
	}

	args := amqp.Table{"x-dead-letter-exchange": dlxName}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare a queue: %w", err)
	}

	for _, spec := range topology(topics) {
		var queueArgs amqp.Table
		if spec.deadLetter {
			queueArgs = args
		}
		if _, err := ch.QueueDeclare(spec.name, true, false, false, false, queueArgs); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", spec.name, err)
		}
		if err := ch.QueueBind(spec.name, spec.routingKey, s.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", spec.name, err)
		}
	}
	return nil
}

// Publish sends a persistent JSON message to topic on the exchange.
func (s *RabbitMQServiceImpl) Publish(topic string, body []byte) error {
	if err := messaging.ValidateOutgoing(topic, body); err != nil {
		return err
	}
	if s.conn.IsClosed() {
		return fmt.Errorf("connection to RabbitMQ is closed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.channel.Publish(
		s.exchange,
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to topic '%s': %w", topic, err)
	}
	return nil
}

// Consume delivers messages from the queue named after topic until ctx is
// done or the channel closes.
func (s *RabbitMQServiceImpl) Consume(ctx context.Context, topic string) (<-chan messaging.Message, error) {
	if s.conn.IsClosed() {
		return nil, fmt.Errorf("connection is closed")
	}

	deliveries, err := s.channel.Consume(topic, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming queue: %w", err)
	}

	out := make(chan messaging.Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				msg := messaging.NewMessage(topic, d.Body,
					func() error { return d.Ack(false) },
					func() error { return d.Nack(false, false) },
				)
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *RabbitMQServiceImpl) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	return s.conn.Close()
}

func (s *RabbitMQServiceImpl) IsHealthy() bool {
	return !s.conn.IsClosed() && s.channel != nil
}
