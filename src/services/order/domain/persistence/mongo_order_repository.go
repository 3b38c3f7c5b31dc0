package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/services/order/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderRepository stores orders in the orders collection. The unique index on
// orderId is created by mongo.EnsureIndexes.
type OrderRepository struct {
	collection *mongo.Collection
}

// OrderDocument is the storage model for MongoDB
type OrderDocument struct {
	OrderID            string                `bson:"orderId"`
	UserID             string                `bson:"userId"`
	Items              []ItemDocument        `bson:"items"`
	DeliveryAddress    AddressDocument       `bson:"deliveryAddress"`
	PaymentMethod      string                `bson:"paymentMethod"`
	PaymentStatus      string                `bson:"paymentStatus"`
	OrderStatus        string                `bson:"orderStatus"`
	OrderNotes         string                `bson:"orderNotes,omitempty"`
	Subtotal           float64               `bson:"subtotal"`
	DeliveryCharge     float64               `bson:"deliveryCharge"`
	Tax                float64               `bson:"tax"`
	TotalAmount        float64               `bson:"totalAmount"`
	DeliveryBoy        string                `bson:"deliveryBoy,omitempty"`
	DeliveryPhone      string                `bson:"deliveryPhone,omitempty"`
	EstimatedDelivery  *time.Time            `bson:"estimatedDelivery,omitempty"`
	DeliveredAt        *time.Time            `bson:"deliveredAt,omitempty"`
	CancelledAt        *time.Time            `bson:"cancelledAt,omitempty"`
	CancellationReason string                `bson:"cancellationReason,omitempty"`
	NotificationStatus string                `bson:"notificationStatus,omitempty"`
	StatusHistory      []StatusEntryDocument `bson:"statusHistory"`
	CreatedAt          time.Time             `bson:"createdAt"`
	UpdatedAt          time.Time             `bson:"updatedAt"`
}

type ItemDocument struct {
	ProductID string  `bson:"productId"`
	Name      string  `bson:"name"`
	Quantity  int     `bson:"quantity"`
	UnitPrice float64 `bson:"unitPrice"`
	LineTotal float64 `bson:"lineTotal"`
}

type AddressDocument struct {
	Name    string `bson:"name"`
	Phone   string `bson:"phone"`
	Address string `bson:"address"`
	Pincode string `bson:"pincode,omitempty"`
	City    string `bson:"city,omitempty"`
	State   string `bson:"state,omitempty"`
	Type    string `bson:"type,omitempty"`
}

type StatusEntryDocument struct {
	Status string    `bson:"status"`
	At     time.Time `bson:"at"`
	Note   string    `bson:"note,omitempty"`
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection("orders")}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	_, err := r.collection.InsertOne(ctx, toDocument(order))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateOrderID, order.OrderID)
	}
	return err
}

// GetOrderByID returns nil, nil when no order has the id.
func (r *OrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	var doc OrderDocument
	err := r.collection.FindOne(ctx, bson.M{"orderId": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	query := listFilter(filter)
	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))
	orders, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// SaveStatusTransition applies the transition only while the stored status
// still equals expected.
func (r *OrderRepository) SaveStatusTransition(ctx context.Context, order *domain.Order, expected domain.Status) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"orderId": order.OrderID, "orderStatus": string(expected)},
		statusTransitionUpdate(order))
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *OrderRepository) SetNotificationStatus(ctx context.Context, orderID, status string) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"orderId": orderID}, bson.M{
		"$set":         bson.M{"notificationStatus": status},
		"$currentDate": bson.M{"updatedAt": true},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *OrderRepository) FindOrdersCreatedBetween(ctx context.Context, from *time.Time, to time.Time) ([]domain.Order, error) {
	return r.find(ctx, createdBetweenFilter(from, to), options.Find())
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Order, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []domain.Order{}
	for cursor.Next(ctx) {
		var doc OrderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		orders = append(orders, *doc.toDomain())
	}
	return orders, cursor.Err()
}

func listFilter(filter domain.OrderFilter) bson.M {
	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.Status != "" {
		query["orderStatus"] = string(filter.Status)
	}
	return query
}

func createdBetweenFilter(from *time.Time, to time.Time) bson.M {
	window := bson.M{"$lte": to}
	if from != nil {
		window["$gte"] = *from
	}
	return bson.M{"createdAt": window}
}

// statusTransitionUpdate sets the fields a transition may touch and appends
// the newest history entry.
func statusTransitionUpdate(order *domain.Order) bson.M {
	doc := toDocument(order)
	set := bson.M{
		"orderStatus":        doc.OrderStatus,
		"paymentStatus":      doc.PaymentStatus,
		"deliveryBoy":        doc.DeliveryBoy,
		"deliveryPhone":      doc.DeliveryPhone,
		"cancellationReason": doc.CancellationReason,
		"updatedAt":          doc.UpdatedAt,
	}
	if doc.EstimatedDelivery != nil {
		set["estimatedDelivery"] = *doc.EstimatedDelivery
	}
	if doc.DeliveredAt != nil {
		set["deliveredAt"] = *doc.DeliveredAt
	}
	if doc.CancelledAt != nil {
		set["cancelledAt"] = *doc.CancelledAt
	}
	update := bson.M{"$set": set}
	if n := len(doc.StatusHistory); n > 0 {
		update["$push"] = bson.M{"statusHistory": doc.StatusHistory[n-1]}
	}
	return update
}

func toDocument(o *domain.Order) OrderDocument {
	doc := OrderDocument{
		OrderID: o.OrderID,
		UserID:  o.UserID,
		DeliveryAddress: AddressDocument{
			Name:    o.DeliveryAddress.Name,
			Phone:   o.DeliveryAddress.Phone,
			Address: o.DeliveryAddress.Address,
			Pincode: o.DeliveryAddress.Pincode,
			City:    o.DeliveryAddress.City,
			State:   o.DeliveryAddress.State,
			Type:    o.DeliveryAddress.Type,
		},
		PaymentMethod:      string(o.PaymentMethod),
		PaymentStatus:      string(o.PaymentStatus),
		OrderStatus:        string(o.OrderStatus),
		OrderNotes:         o.OrderNotes,
		Subtotal:           o.Subtotal,
		DeliveryCharge:     o.DeliveryCharge,
		Tax:                o.Tax,
		TotalAmount:        o.TotalAmount,
		DeliveryBoy:        o.DeliveryBoy,
		DeliveryPhone:      o.DeliveryPhone,
		EstimatedDelivery:  o.EstimatedDelivery,
		DeliveredAt:        o.DeliveredAt,
		CancelledAt:        o.CancelledAt,
		CancellationReason: o.CancellationReason,
		NotificationStatus: o.NotificationStatus,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	for _, item := range o.Items {
		doc.Items = append(doc.Items, ItemDocument(item))
	}
	for _, entry := range o.StatusHistory {
		doc.StatusHistory = append(doc.StatusHistory, StatusEntryDocument{Status: string(entry.Status), At: entry.At, Note: entry.Note})
	}
	return doc
}

func (d OrderDocument) toDomain() *domain.Order {
	o := &domain.Order{
		OrderID:            d.OrderID,
		UserID:             d.UserID,
		DeliveryAddress:    domain.DeliveryAddress(d.DeliveryAddress),
		PaymentMethod:      domain.PaymentMethod(d.PaymentMethod),
		PaymentStatus:      domain.PaymentStatus(d.PaymentStatus),
		OrderStatus:        domain.Status(d.OrderStatus),
		OrderNotes:         d.OrderNotes,
		Subtotal:           d.Subtotal,
		DeliveryCharge:     d.DeliveryCharge,
		Tax:                d.Tax,
		TotalAmount:        d.TotalAmount,
		DeliveryBoy:        d.DeliveryBoy,
		DeliveryPhone:      d.DeliveryPhone,
		EstimatedDelivery:  d.EstimatedDelivery,
		DeliveredAt:        d.DeliveredAt,
		CancelledAt:        d.CancelledAt,
		CancellationReason: d.CancellationReason,
		NotificationStatus: d.NotificationStatus,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	for _, item := range d.Items {
		o.Items = append(o.Items, domain.OrderItem(item))
	}
	for _, entry := range d.StatusHistory {
		o.StatusHistory = append(o.StatusHistory, domain.StatusEntry{Status: domain.Status(entry.Status), At: entry.At, Note: entry.Note})
	}
	return o
}
