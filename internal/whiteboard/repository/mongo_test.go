package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/compdash/compdash/backend/go-services/internal/whiteboard"
)

func itemsValue(t *testing.T, items any) bson.RawValue {
	t.Helper()
	raw, err := bson.Marshal(bson.M{"items": items})
	require.NoError(t, err)
	return bson.Raw(raw).Lookup("items")
}

func TestRawItems_StoredItemsSanitizeBack(t *testing.T) {
	color := "#ff0"
	stored := []whiteboard.Item{
		{ID: "a", Kind: whiteboard.KindNote, X: 1, Y: 2, Content: "hi", Color: &color},
		{ID: "b", Kind: whiteboard.KindText, X: -3, Y: 4},
	}
	got := whiteboard.Sanitize(rawItems(itemsValue(t, stored)))
	assert.Equal(t, stored, got)
}

func TestRawItems_IntegerCoordinatesAndJunk(t *testing.T) {
	v := itemsValue(t, bson.A{
		bson.M{"id": "a", "kind": "note", "x": int32(5), "y": int64(6)},
		"not a document",
		bson.M{"id": "b", "kind": "shape", "x": 0, "y": 0},
	})
	raw := rawItems(v)
	list, ok := raw.([]any)
	require.True(t, ok)
	assert.Len(t, list, 3)
	assert.Nil(t, list[1])

	got := whiteboard.Sanitize(raw)
	require.Len(t, got, 1)
	assert.Equal(t, float64(5), got[0].X)
	assert.Equal(t, float64(6), got[0].Y)
}

func TestRawItems_NonArray(t *testing.T) {
	assert.Nil(t, rawItems(itemsValue(t, "oops")))
	assert.Nil(t, rawItems(bson.RawValue{}))
	assert.Empty(t, whiteboard.Sanitize(rawItems(bson.RawValue{})))
}

// sentUpdate returns the single update statement of the last update command.
func sentUpdate(mt *mtest.T) bson.Raw {
	mt.Helper()
	evt := mt.GetStartedEvent()
	require.NotNil(mt, evt)
	require.Equal(mt, "update", evt.CommandName)
	return evt.Command.Lookup("updates").Array().Index(0).Value().Document()
}

func TestMongoRepo_CompareAndSwap(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []whiteboard.Item{{ID: "a", Kind: whiteboard.KindNote, X: 1, Y: 2}}

	mt.Run("first write upserts", func(mt *mtest.T) {
		repo := &MongoRepo{col: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "oid"}}}},
		))

		ok, err := repo.CompareAndSwap(ctx, "comp_1", 0, items, at)
		require.NoError(mt, err)
		assert.True(mt, ok)

		stmt := sentUpdate(mt)
		upsert, _ := stmt.Lookup("upsert").BooleanOK()
		assert.True(mt, upsert)
		filter := stmt.Lookup("q").Document()
		assert.Equal(mt, "comp_1", filter.Lookup("id").StringValue())
		assert.Equal(mt, int64(0), filter.Lookup("version").Int64())
		assert.Equal(mt, int64(1), stmt.Lookup("u", "$set", "version").Int64())
	})

	mt.Run("later write is a plain conditional update", func(mt *mtest.T) {
		repo := &MongoRepo{col: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		ok, err := repo.CompareAndSwap(ctx, "comp_1", 4, items, at)
		require.NoError(mt, err)
		assert.True(mt, ok)

		stmt := sentUpdate(mt)
		upsert, _ := stmt.Lookup("upsert").BooleanOK()
		assert.False(mt, upsert)
		assert.Equal(mt, int64(4), stmt.Lookup("q", "version").Int64())
		assert.Equal(mt, int64(5), stmt.Lookup("u", "$set", "version").Int64())
	})

	mt.Run("duplicate key on create is a lost race", func(mt *mtest.T) {
		repo := &MongoRepo{col: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: compdash.whiteboards index: id_1 dup key",
		}))

		ok, err := repo.CompareAndSwap(ctx, "comp_1", 0, items, at)
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("stale version matches nothing", func(mt *mtest.T) {
		repo := &MongoRepo{col: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		ok, err := repo.CompareAndSwap(ctx, "comp_1", 2, items, at)
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("server error is wrapped", func(mt *mtest.T) {
		repo := &MongoRepo{col: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad update",
		}))

		ok, err := repo.CompareAndSwap(ctx, "comp_1", 2, items, at)
		require.Error(mt, err)
		assert.False(mt, ok)
		assert.Contains(mt, err.Error(), "save whiteboard comp_1")
		assert.Contains(mt, err.Error(), "bad update")
	})
}

func TestMongoRepo_Load(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("found", func(mt *mtest.T) {
		repo := &MongoRepo{col: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "id", Value: "comp_1"},
			{Key: "items", Value: bson.A{bson.D{{Key: "id", Value: "a"}, {Key: "kind", Value: "text"}, {Key: "x", Value: 1.5}, {Key: "y", Value: int32(2)}}}},
			{Key: "version", Value: int64(3)},
			{Key: "updatedAt", Value: at},
		}))

		row, err := repo.Load(ctx, "comp_1")
		require.NoError(mt, err)
		require.NotNil(mt, row)
		assert.Equal(mt, int64(3), row.Version)
		assert.True(mt, at.Equal(row.UpdatedAt))
		got := whiteboard.Sanitize(row.Items)
		require.Len(mt, got, 1)
		assert.Equal(mt, 1.5, got[0].X)
	})

	mt.Run("absent", func(mt *mtest.T) {
		repo := &MongoRepo{col: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		row, err := repo.Load(ctx, "comp_1")
		require.NoError(mt, err)
		assert.Nil(mt, row)
	})
}
