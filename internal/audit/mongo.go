package audit

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSink inserts records into a Mongo collection.
type MongoSink struct {
	col *mongo.Collection
}

func NewMongoSink(col *mongo.Collection) *MongoSink {
	return &MongoSink{col: col}
}

func (s *MongoSink) Append(ctx context.Context, r Record) error {
	if _, err := s.col.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}
