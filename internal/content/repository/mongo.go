package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/content"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores each kind in its own collection. Record IDs are
// ObjectID hex strings kept as string _id values.
type MongoRepo struct {
	db *mongo.Database
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{db: db}
}

// EnsureIndexes creates the slug and ordering indexes for every kind.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	for _, k := range content.Kinds() {
		_, err := m.db.Collection(k.Collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "section", Value: 1}, {Key: "subsection", Value: 1}}},
		})
		if err != nil {
			return fmt.Errorf("indexes for %s: %w", k.Collection, err)
		}
	}
	return nil
}

func (m *MongoRepo) col(kind string) (*mongo.Collection, error) {
	k, ok := content.LookupKind(kind)
	if !ok {
		return nil, content.ErrUnknownKind
	}
	return m.db.Collection(k.Collection), nil
}

func filterDoc(f content.Filter) bson.M {
	q := bson.M{}
	if f.Section != "" {
		q["section"] = f.Section
	}
	if f.Subsection != "" {
		q["subsection"] = f.Subsection
	}
	if f.Published != nil {
		q["isPublished"] = *f.Published
	}
	if f.Search != "" {
		q["title"] = bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
	}
	return q
}

func (m *MongoRepo) Create(ctx context.Context, r *content.Record) (string, error) {
	col, err := m.col(r.Kind)
	if err != nil {
		return "", err
	}
	if r.ID == "" {
		r.ID = primitive.NewObjectID().Hex()
	}
	if _, err := col.InsertOne(ctx, r); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: slug %q already exists", content.ErrValidation, r.Slug)
		}
		return "", err
	}
	return r.ID, nil
}

func (m *MongoRepo) findOne(ctx context.Context, kind string, filter bson.M) (*content.Record, error) {
	col, err := m.col(kind)
	if err != nil {
		return nil, err
	}
	var r content.Record
	if err := col.FindOne(ctx, filter).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, content.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (m *MongoRepo) Get(ctx context.Context, kind, id string) (*content.Record, error) {
	return m.findOne(ctx, kind, bson.M{"_id": id})
}

func (m *MongoRepo) GetBySlug(ctx context.Context, kind, slug string) (*content.Record, error) {
	return m.findOne(ctx, kind, bson.M{"slug": slug})
}

func (m *MongoRepo) List(ctx context.Context, kind string, f content.Filter) ([]*content.Record, error) {
	col, err := m.col(kind)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := col.Find(ctx, filterDoc(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*content.Record{}
	for cur.Next(ctx) {
		var r content.Record
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Count(ctx context.Context, kind string, f content.Filter) (int64, error) {
	col, err := m.col(kind)
	if err != nil {
		return 0, err
	}
	return col.CountDocuments(ctx, filterDoc(f))
}

func (m *MongoRepo) Replace(ctx context.Context, r *content.Record) error {
	col, err := m.col(r.Kind)
	if err != nil {
		return err
	}
	res, err := col.ReplaceOne(ctx, bson.M{"_id": r.ID}, r)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: slug %q already exists", content.ErrValidation, r.Slug)
		}
		return err
	}
	if res.MatchedCount == 0 {
		return content.ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Delete(ctx context.Context, kind, id string) error {
	col, err := m.col(kind)
	if err != nil {
		return err
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return content.ErrNotFound
	}
	return nil
}

func (m *MongoRepo) SlugExists(ctx context.Context, kind, slug, excludeID string) (bool, error) {
	col, err := m.col(kind)
	if err != nil {
		return false, err
	}
	q := bson.M{"slug": slug}
	if excludeID != "" {
		q["_id"] = bson.M{"$ne": excludeID}
	}
	n, err := col.CountDocuments(ctx, q, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// orderIDs returns the distinct record ids of items.
func orderIDs(items []content.OrderItem) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it.ID] {
			seen[it.ID] = true
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// SetOrder updates nothing unless every id exists.
func (m *MongoRepo) SetOrder(ctx context.Context, kind string, items []content.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	col, err := m.col(kind)
	if err != nil {
		return err
	}
	ids := orderIDs(items)
	n, err := col.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return content.ErrNotFound
	}
	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(items))
	for _, it := range items {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": it.ID}).
			SetUpdate(bson.M{"$set": bson.M{"order": it.Order, "updatedAt": now}}))
	}
	res, err := col.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return err
	}
	if res.MatchedCount < int64(len(ids)) {
		// deleted between the check and the write
		return content.ErrNotFound
	}
	return nil
}
