package domain

import (
	"strings"
	"time"
)

// Status is the fulfilment stage of an order.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// AllStatuses lists statuses in fulfilment order, cancelled last.
var AllStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

// fulfilment stages; cancelled is a side exit and has no rank
var stageRank = map[Status]int{
	StatusPending:        0,
	StatusConfirmed:      1,
	StatusPreparing:      2,
	StatusReady:          3,
	StatusOutForDelivery: 4,
	StatusDelivered:      5,
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentOnline         PaymentMethod = "online"
	PaymentWallet         PaymentMethod = "wallet"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// EstimatedDeliveryWindow is added to the dispatch time when an order goes
// out for delivery.
const EstimatedDeliveryWindow = 30 * time.Minute

type DeliveryAddress struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Pincode string `json:"pincode,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Type    string `json:"type,omitempty"`
}

// OrderItem freezes the catalog price at order time.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

type StatusEntry struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	Note   string    `json:"note,omitempty"`
}

// Customer is the user joined into order responses; it is never persisted.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type Order struct {
	OrderID         string          `json:"orderId"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	DeliveryAddress DeliveryAddress `json:"deliveryAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	OrderStatus     Status          `json:"orderStatus"`
	OrderNotes      string          `json:"orderNotes,omitempty"`

	Subtotal       float64 `json:"subtotal"`
	DeliveryCharge float64 `json:"deliveryCharge"`
	Tax            float64 `json:"tax"`
	TotalAmount    float64 `json:"totalAmount"`

	DeliveryBoy        string     `json:"deliveryBoy,omitempty"`
	DeliveryPhone      string     `json:"deliveryPhone,omitempty"`
	EstimatedDelivery  *time.Time `json:"estimatedDelivery,omitempty"`
	DeliveredAt        *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
	NotificationStatus string     `json:"notificationStatus,omitempty"`

	StatusHistory []StatusEntry `json:"statusHistory"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`

	Customer *Customer `json:"customer,omitempty"`
}

// StatusChange is an admin request to move an order along.
type StatusChange struct {
	Status        string
	Notes         string
	DeliveryBoy   string
	DeliveryPhone string
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Message: "unknown order status " + quote(raw)}
	}
	return s, nil
}

func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := stageRank[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order may move from one status to another.
// Non-terminal orders may skip ahead to any later stage or be cancelled; they
// never move backwards.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from.IsTerminal() || from == to {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return stageRank[to] > stageRank[from]
}

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case "":
		return PaymentCashOnDelivery, nil
	case PaymentCashOnDelivery, PaymentOnline, PaymentWallet:
		return m, nil
	default:
		return "", &ValidationError{Field: "paymentMethod", Message: "unsupported payment method " + quote(raw)}
	}
}

// applyTransition stamps the fields that belong to the target status.
func (o *Order) applyTransition(to Status, change StatusChange, now time.Time) {
	switch to {
	case StatusOutForDelivery:
		eta := now.Add(EstimatedDeliveryWindow)
		o.EstimatedDelivery = &eta
		if change.DeliveryBoy != "" {
			o.DeliveryBoy = change.DeliveryBoy
		}
		if change.DeliveryPhone != "" {
			o.DeliveryPhone = change.DeliveryPhone
		}
	case StatusDelivered:
		o.DeliveredAt = &now
		if o.PaymentMethod == PaymentCashOnDelivery {
			o.PaymentStatus = PaymentPaid
		}
	case StatusCancelled:
		o.CancelledAt = &now
		o.CancellationReason = change.Notes
		if o.PaymentStatus == PaymentPaid {
			o.PaymentStatus = PaymentRefunded
		}
	}
	o.OrderStatus = to
	o.UpdatedAt = now
	o.StatusHistory = append(o.StatusHistory, StatusEntry{Status: to, At: now, Note: change.Notes})
}

func (o *Order) clone() *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	c.StatusHistory = append([]StatusEntry(nil), o.StatusHistory...)
	if o.Customer != nil {
		customer := *o.Customer
		c.Customer = &customer
	}
	return &c
}

func quote(s string) string {
	return "\"" + s + "\""
}
