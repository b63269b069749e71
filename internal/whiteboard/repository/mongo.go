package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/compdash/compdash/backend/go-services/internal/whiteboard"
)

// MongoRepo stores one Mongo document per whiteboard, keyed by a unique "id"
// field. The unique index is what serializes two writers creating the same
// whiteboard concurrently.
type MongoRepo struct {
	col *mongo.Collection
}

type mongoRow struct {
	ID        string        `bson:"id"`
	Items     bson.RawValue `bson:"items"`
	Version   int64         `bson:"version"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("ensure whiteboard index: %w", err)
	}
	return &MongoRepo{col: col}, nil
}

func (m *MongoRepo) Load(ctx context.Context, documentID string) (*Row, error) {
	var r mongoRow
	err := m.col.FindOne(ctx, bson.M{"id": documentID}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("load whiteboard %s: %w", documentID, err)
	}
	return &Row{
		DocumentID: r.ID,
		Items:      rawItems(r.Items),
		Version:    r.Version,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

// CompareAndSwap issues a single conditional update filtered on the expected
// version. The first write (expected == 0) upserts; if another writer created
// the document meanwhile the insert hits the unique index and the swap fails.
func (m *MongoRepo) CompareAndSwap(ctx context.Context, documentID string, expected int64, items []whiteboard.Item, at time.Time) (bool, error) {
	if items == nil {
		items = []whiteboard.Item{}
	}
	filter := bson.M{"id": documentID, "version": expected}
	update := bson.M{
		"$set": bson.M{
			"items":     items,
			"version":   expected + 1,
			"updatedAt": at,
		},
		"$setOnInsert": bson.M{"createdAt": at},
	}
	opts := options.Update().SetUpsert(expected == 0)
	res, err := m.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("save whiteboard %s: %w", documentID, err)
	}
	return res.MatchedCount > 0 || res.UpsertedCount > 0, nil
}

// rawItems converts the stored BSON array into the plain []any / map form the
// sanitizer understands. Elements that are not documents are kept as nil so
// the sanitizer drops them.
func rawItems(v bson.RawValue) any {
	if v.Type != bson.TypeArray {
		return nil
	}
	values, err := v.Array().Values()
	if err != nil {
		return nil
	}
	out := make([]any, 0, len(values))
	for _, val := range values {
		if val.Type != bson.TypeEmbeddedDocument {
			out = append(out, nil)
			continue
		}
		var m bson.M
		if err := val.Unmarshal(&m); err != nil {
			out = append(out, nil)
			continue
		}
		out = append(out, map[string]any(m))
	}
	return out
}
