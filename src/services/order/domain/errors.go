package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateOrderID is returned by an OrderStore when the generated
	// order number is already taken.
	ErrDuplicateOrderID = errors.New("order id already exists")

	ErrPublishingDisabled = errors.New("event publishing is disabled")
)

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// InvalidStateError rejects a transition the state machine does not allow.
type InvalidStateError struct {
	OrderID string
	From    Status
	To      Status
	Reason  string
}

func (e *InvalidStateError) Error() string {
	msg := fmt.Sprintf("order %s cannot move from %s to %s", e.OrderID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// InternalError wraps persistence and other unexpected failures.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}
