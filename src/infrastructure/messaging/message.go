// Package messaging holds the broker-neutral message type shared by the
// RabbitMQ and Kafka adapters.
package messaging

import (
	"encoding/json"
	"errors"
)

// Publisher sends a raw event body to a topic.
type Publisher interface {
	Publish(topic string, body []byte) error
}

// Message is one delivery. Exactly one of Ack or Nack should be called.
type Message struct {
	Topic string
	Body  []byte
	ack   func() error
	nack  func() error
}

func NewMessage(topic string, body []byte, ack, nack func() error) Message {
	return Message{Topic: topic, Body: body, ack: ack, nack: nack}
}

func (m Message) Ack() error {
	if m.ack == nil {
		return nil
	}
	return m.ack()
}

// Nack hands the message back to the broker.
func (m Message) Nack() error {
	if m.nack == nil {
		return nil
	}
	return m.nack()
}

// ValidateOutgoing rejects messages no broker should carry.
func ValidateOutgoing(topic string, body []byte) error {
	if topic == "" {
		return errors.New("topic cannot be empty")
	}
	if body == nil {
		return errors.New("message body cannot be nil")
	}
	return nil
}

// PartitionKey extracts the orderId of an event body so every event of an
// order lands on the same partition. Bodies without one get no key.
func PartitionKey(body []byte) []byte {
	var envelope struct {
		OrderID   string `json:"orderId"`
		ProductID string `json:"productId"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	switch {
	case envelope.OrderID != "":
		return []byte(envelope.OrderID)
	case envelope.ProductID != "":
		return []byte(envelope.ProductID)
	}
	return nil
}
