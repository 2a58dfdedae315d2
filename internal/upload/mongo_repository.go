package upload

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "upload_audit"

// MongoRepository appends audit records to a MongoDB collection.
type MongoRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoRepository creates an audit store backed by MongoDB.
func NewMongoRepository(db *mongo.Database, timeout time.Duration) *MongoRepository {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &MongoRepository{collection: db.Collection(collectionName), timeout: timeout}
}

// Append inserts rec. The conditional form upserts with $setOnInsert so a
// repeated id leaves the first document untouched.
func (r *MongoRepository) Append(ctx context.Context, rec AuditRecord, ifAbsent bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if !ifAbsent {
		if _, err := r.collection.InsertOne(ctx, rec); err != nil {
			return fmt.Errorf("insert audit record: %w", err)
		}
		return nil
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": rec.ID},
		bson.M{"$setOnInsert": bson.M{
			"token":     rec.Token,
			"client_id": rec.ClientID,
			"filename":  rec.Filename,
			"mimetype":  rec.Mimetype,
			"file_url":  rec.FileURL,
			"key":       rec.Key,
			"timestamp": rec.Timestamp,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert audit record: %w", err)
	}
	if result.UpsertedCount == 0 {
		return ErrRecordExists
	}
	return nil
}
