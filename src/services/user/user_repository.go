package user

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// User is the customer identity other services join for display.
type User struct {
	ID        string    `bson:"id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Phone     string    `bson:"phone" json:"phone"`
	Email     string    `bson:"email,omitempty" json:"email,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	SeedUser(ctx context.Context, user User) error
}

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{collection: db.Collection("users")}
}

// GetUserByID returns nil, nil when the user does not exist.
func (r *userRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) SeedUser(ctx context.Context, user User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"id": user.ID},
		bson.M{"$setOnInsert": user},
		options.Update().SetUpsert(true),
	)
	return err
}
