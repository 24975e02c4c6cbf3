package dbcopy

import (
	"context"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB implements Source and Target on a database.
type MongoDB struct {
	db *mongo.Database
}

func NewMongoDB(db *mongo.Database) *MongoDB {
	return &MongoDB{db: db}
}

// Collections lists the non-system collections in name order.
func (m *MongoDB) Collections(ctx context.Context) ([]string, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{{Key: "type", Value: "collection"}}, options.ListCollections().SetNameOnly(true))
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if !strings.HasPrefix(n, "system.") {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MongoDB) Count(ctx context.Context, collection string) (int64, error) {
	return m.db.Collection(collection).CountDocuments(ctx, bson.D{})
}

// Find returns a cursor over the collection in _id order.
func (m *MongoDB) Find(ctx context.Context, collection string, batchSize int) (Cursor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetBatchSize(int32(batchSize))
	cur, err := m.db.Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (m *MongoDB) Drop(ctx context.Context, collection string) error {
	return m.db.Collection(collection).Drop(ctx)
}

func (m *MongoDB) InsertMany(ctx context.Context, collection string, docs []interface{}) error {
	_, err := m.db.Collection(collection).InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}
