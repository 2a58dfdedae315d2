package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const collectionName = "tokens"

// MongoRepository stores tokens in a MongoDB collection keyed by token value.
type MongoRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoRepository creates a token store backed by MongoDB.
func NewMongoRepository(db *mongo.Database, timeout time.Duration) *MongoRepository {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &MongoRepository{collection: db.Collection(collectionName), timeout: timeout}
}

// Create inserts the token; the token value is the document _id.
func (r *MongoRepository) Create(ctx context.Context, tok Token) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, tok); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrTokenExists
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// Get retrieves a token by value.
func (r *MongoRepository) Get(ctx context.Context, value string) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var tok Token
	if err := r.collection.FindOne(ctx, bson.M{"_id": value}).Decode(&tok); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Token{}, ErrTokenNotFound
		}
		return Token{}, fmt.Errorf("get token: %w", err)
	}
	return tok, nil
}

// MarkConsumed sets consumed_at only when it is not already present.
func (r *MongoRepository) MarkConsumed(ctx context.Context, value string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"_id": value, "consumed_at": nil}
	update := bson.M{"$set": bson.M{"consumed_at": at}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": value})
	if err != nil {
		return fmt.Errorf("check token: %w", err)
	}
	if count == 0 {
		return ErrTokenNotFound
	}
	return ErrTokenConsumed
}
