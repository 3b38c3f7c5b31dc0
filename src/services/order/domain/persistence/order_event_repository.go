package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/services/events"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/order/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderEvent struct {
	ID         string     `bson:"_id,omitempty"`
	OrderID    string     `bson:"orderId"`
	Topic      string     `bson:"topic"`
	EventData  []byte     `bson:"eventData"`
	CreatedAt  time.Time  `bson:"createdAt"`
	Replayed   bool       `bson:"replayed"`
	ReplayedAt *time.Time `bson:"replayedAt,omitempty"`
	Status     string     `bson:"status"`
}

// EventRepository keeps events that could not be delivered in order_events
// until they are replayed.
type EventRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{
		collection: db.Collection("order_events"),
		now:        func() time.Time { return time.Now().Local() },
	}
}

func (r *EventRepository) StoreEventForReplay(ctx context.Context, orderID, topic string, eventData []byte) error {
	if !json.Valid(eventData) {
		return errors.New("invalid JSON event data")
	}
	if topic == "" {
		return errors.New("event topic is required")
	}

	eventDoc := OrderEvent{
		ID:        primitive.NewObjectID().Hex(),
		OrderID:   orderID,
		Topic:     topic,
		EventData: eventData,
		CreatedAt: r.now(),
		Status:    events.EventStatusFailed,
	}
	_, err := r.collection.InsertOne(ctx, eventDoc)
	return err
}

// GetUnreplayedEvents fetches events that have not been replayed yet, oldest
// first.
func (r *EventRepository) GetUnreplayedEvents(ctx context.Context, limit int64) ([]domain.StoredEvent, error) {
	opts := options.Find().SetLimit(limit).SetSort(bson.D{bson.E{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, unreplayedFilter(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stored []domain.StoredEvent
	for cursor.Next(ctx) {
		var evt OrderEvent
		if err := cursor.Decode(&evt); err != nil {
			return nil, err
		}
		stored = append(stored, domain.StoredEvent{
			ID:        evt.ID,
			OrderID:   evt.OrderID,
			Topic:     evt.Topic,
			EventData: evt.EventData,
		})
	}
	return stored, cursor.Err()
}

func (r *EventRepository) MarkEventAsReplaying(ctx context.Context, eventID string) error {
	return r.setStatus(ctx, eventID, bson.M{"status": events.EventStatusReplaying})
}

func (r *EventRepository) MarkEventAsCompleted(ctx context.Context, eventID string) error {
	return r.setStatus(ctx, eventID, bson.M{
		"status":     events.EventStatusCompleted,
		"replayed":   true,
		"replayedAt": r.now(),
	})
}

func (r *EventRepository) MarkEventAsFailed(ctx context.Context, eventID string) error {
	return r.setStatus(ctx, eventID, bson.M{"status": events.EventStatusFailed})
}

func (r *EventRepository) setStatus(ctx context.Context, eventID string, fields bson.M) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": eventID}, bson.M{"$set": fields})
	return err
}

// unreplayedFilter also picks up events left in replaying by an interrupted
// run.
func unreplayedFilter() bson.M {
	return bson.M{
		"replayed": bson.M{"$ne": true},
		"status": bson.M{"$in": []string{
			events.EventStatusPending,
			events.EventStatusFailed,
			events.EventStatusReplaying,
		}},
	}
}
