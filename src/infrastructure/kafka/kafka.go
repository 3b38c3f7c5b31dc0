// Package kafka is the Kafka alternative to the RabbitMQ event broker. Topics
// are the event names; consumers join one group per topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/messaging"
	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

var (
	ErrDisabled = errors.New("kafka disabled")
	errNacked   = errors.New("offset not committed, an earlier message was nacked")
)

// groupReader is the part of *kafka.Reader the consumer uses.
type groupReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Client struct {
	brokers []string
	groupID string
	logger  log.Logger
	writer  *kafka.Writer

	mu      sync.Mutex
	readers []groupReader
	closed  bool
}

func NewClient(brokers []string, groupID string, logger log.Logger) (*Client, error) {
	if len(brokers) == 0 {
		return nil, ErrDisabled
	}
	return &Client{
		brokers: brokers,
		groupID: groupID,
		logger:  logger,
		writer:  newWriter(brokers),
	}, nil
}

func newWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func (c *Client) newReader(topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.brokers,
		Topic:    topic,
		GroupID:  c.groupFor(topic),
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

func (c *Client) groupFor(topic string) string {
	return c.groupID + "." + topic
}

// Publish writes body to topic keyed by the event's order id.
func (c *Client) Publish(topic string, body []byte) error {
	if err := messaging.ValidateOutgoing(topic, body); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err := c.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   messaging.PartitionKey(body),
		Value: body,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish message to topic '%s': %w", topic, err)
	}
	return nil
}

// Ordered reports that offsets are committed by position, so messages of a
// topic must be settled one at a time and in order.
func (c *Client) Ordered() bool { return true }

// Consume streams messages of topic. Ack commits the offset. Nack ends the
// stream without committing and leaves the group, so the next Consume of the
// topic starts again from the nacked message.
func (c *Client) Consume(ctx context.Context, topic string) (<-chan messaging.Message, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("kafka client is closed")
	}
	reader := c.newReader(topic)
	c.readers = append(c.readers, reader)
	c.mu.Unlock()

	return c.stream(ctx, topic, reader), nil
}

func (c *Client) stream(ctx context.Context, topic string, reader groupReader) <-chan messaging.Message {
	out := make(chan messaging.Message)
	readCtx, cancelRead := context.WithCancel(ctx)
	var nacked atomic.Bool
	nack := func() error {
		nacked.Store(true)
		cancelRead()
		return nil
	}

	go func() {
		defer close(out)
		defer cancelRead()
		for {
			m, err := reader.FetchMessage(readCtx)
			if err != nil {
				if nacked.Load() {
					c.closeReader(reader)
					return
				}
				// io.EOF means the reader was closed
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				c.logger.Exception(ctx, "kafka read error on topic "+topic, err)
				time.Sleep(2 * time.Second)
				continue
			}
			msg := messaging.NewMessage(topic, m.Value,
				func() error {
					if nacked.Load() {
						return errNacked
					}
					return reader.CommitMessages(context.Background(), m)
				},
				nack,
			)
			select {
			case out <- msg:
			case <-readCtx.Done():
				if nacked.Load() {
					c.closeReader(reader)
				}
				return
			}
		}
	}()
	return out
}

func (c *Client) closeReader(reader groupReader) {
	c.mu.Lock()
	c.readers = slices.DeleteFunc(c.readers, func(r groupReader) bool { return r == reader })
	c.mu.Unlock()
	if err := reader.Close(); err != nil {
		c.logger.Warn(context.Background(), fmt.Sprintf("failed to close kafka reader: %v", err))
	}
}

func (c *Client) IsHealthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	errs := []error{c.writer.Close()}
	for _, r := range c.readers {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}
