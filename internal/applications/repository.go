package applications

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository defines persistence operations for applications
type Repository interface {
	Create(ctx context.Context, a *Application) (string, error)
	Get(ctx context.Context, id string) (*Application, error)
	List(ctx context.Context, f Filter) ([]*Application, error)
	SetStatus(ctx context.Context, id string, status Status, notes *string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates the listing index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, a *Application) (string, error) {
	if a.ID == "" {
		a.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.col.InsertOne(ctx, a); err != nil {
		return "", err
	}
	return a.ID, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Application, error) {
	var a Application
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *MongoRepository) List(ctx context.Context, f Filter) ([]*Application, error) {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Program != "" {
		q["program"] = f.Program
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Application{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) SetStatus(ctx context.Context, id string, status Status, notes *string, at time.Time) error {
	set := bson.M{"status": status, "updatedAt": at}
	if notes != nil {
		set["notes"] = *notes
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryRepository keeps applications in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]Application
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]Application)}
}

func (m *MemoryRepository) Create(_ context.Context, a *Application) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = primitive.NewObjectID().Hex()
	}
	c := *a
	c.Documents = append(c.Documents[:0:0], a.Documents...)
	m.store[a.ID] = c
	return a.ID, nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Documents = append(a.Documents[:0:0], a.Documents...)
	return &a, nil
}

func (m *MemoryRepository) List(_ context.Context, f Filter) ([]*Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Application{}
	for _, a := range m.store {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Program != "" && a.Program != f.Program {
			continue
		}
		a := a
		a.Documents = append(a.Documents[:0:0], a.Documents...)
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) SetStatus(_ context.Context, id string, status Status, notes *string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	if notes != nil {
		a.Notes = *notes
	}
	a.UpdatedAt = at
	m.store[id] = a
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}
