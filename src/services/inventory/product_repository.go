package inventory

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNegativeStock = errors.New("stock must not be negative")

type Product struct {
	ID        string    `bson:"id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Category  string    `bson:"category,omitempty" json:"category,omitempty"`
	Price     float64   `bson:"price" json:"price"`
	Stock     int       `bson:"stock" json:"stock"`
	IsActive  bool      `bson:"isActive" json:"isActive"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type ProductRepository interface {
	// DecrementStock debits quantity only if at least quantity is in stock.
	// It reports false, without error, when the product is missing or short.
	DecrementStock(ctx context.Context, productID string, quantity int) (bool, error)
	IncrementStock(ctx context.Context, productID string, quantity int) error
	SeedProduct(ctx context.Context, product Product) error
	GetProductById(ctx context.Context, productID string) (*Product, error)
	UpdateProductStock(ctx context.Context, productID string, stock int) (bool, error)
	GetLowStockProducts(ctx context.Context, threshold int) ([]Product, error)
	AddProduct(ctx context.Context, product Product) error
	GetAllProducts(ctx context.Context) ([]Product, error)
}

type productRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &productRepository{
		collection: db.Collection("products"),
	}
}

func decrementStockFilter(productID string, quantity int) bson.M {
	return bson.M{"id": productID, "stock": bson.M{"$gte": quantity}}
}

func stockDeltaUpdate(delta int) bson.M {
	return bson.M{
		"$inc":         bson.M{"stock": delta},
		"$currentDate": bson.M{"updatedAt": true},
	}
}

func (r *productRepository) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, errors.New("quantity must be greater than 0")
	}
	res := r.collection.FindOneAndUpdate(ctx, decrementStockFilter(productID, quantity), stockDeltaUpdate(-quantity))
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, res.Err()
	}
	return true, nil
}

func (r *productRepository) IncrementStock(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return errors.New("quantity must be greater than 0")
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"id": productID}, stockDeltaUpdate(quantity))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *productRepository) SeedProduct(ctx context.Context, product Product) error {
	filter := bson.M{"id": product.ID}
	update := bson.M{"$setOnInsert": product}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *productRepository) GetProductById(ctx context.Context, productID string) (*Product, error) {
	var product Product
	err := r.collection.FindOne(ctx, bson.M{"id": productID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // Product not found
		}
		return nil, err
	}
	return &product, nil
}

// UpdateProductStock sets an absolute stock level. It reports false when the
// product does not exist.
func (r *productRepository) UpdateProductStock(ctx context.Context, productID string, stock int) (bool, error) {
	if stock < 0 {
		return false, ErrNegativeStock
	}
	filter := bson.M{"id": productID}
	update := bson.M{"$set": bson.M{"stock": stock}, "$currentDate": bson.M{"updatedAt": true}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// GetLowStockProducts returns products with stock below the threshold
func (r *productRepository) GetLowStockProducts(ctx context.Context, threshold int) ([]Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "stock", Value: 1}})
	return r.find(ctx, bson.M{"stock": bson.M{"$lt": threshold}}, opts)
}

// AddProduct adds a new product to the inventory
func (r *productRepository) AddProduct(ctx context.Context, product Product) error {
	if product.Stock < 0 {
		return ErrNegativeStock
	}
	_, err := r.collection.InsertOne(ctx, product)
	return err
}

// GetAllProducts retrieves all products in the inventory
func (r *productRepository) GetAllProducts(ctx context.Context) ([]Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return r.find(ctx, bson.M{}, opts)
}

func (r *productRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Product, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []Product{}
	for cursor.Next(ctx) {
		var product Product
		if err := cursor.Decode(&product); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, cursor.Err()
}
