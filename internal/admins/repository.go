package admins

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/models"
)

// Repository defines persistence operations for admin accounts.
// GetByUsername returns (nil, nil) when the account does not exist.
type Repository interface {
	Upsert(ctx context.Context, a *models.Admin) (*models.Admin, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes makes usernames unique.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoRepository) Upsert(ctx context.Context, a *models.Admin) (*models.Admin, error) {
	now := time.Now().UTC()
	a.UpdatedAt = now
	update := bson.M{
		"$set": bson.M{
			"name":         a.Name,
			"email":        a.Email,
			"passwordHash": a.PasswordHash,
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID().Hex(),
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out models.Admin
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"username": a.Username}, update, opts).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MongoRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	if err := r.col.FindOne(ctx, bson.M{"username": username}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// MemoryRepository keeps admins in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]models.Admin
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]models.Admin)}
}

func (m *MemoryRepository) Upsert(_ context.Context, a *models.Admin) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	cur, ok := m.store[a.Username]
	if !ok {
		cur = models.Admin{ID: primitive.NewObjectID().Hex(), Username: a.Username, CreatedAt: now}
	}
	cur.Name, cur.Email, cur.PasswordHash, cur.UpdatedAt = a.Name, a.Email, a.PasswordHash, now
	m.store[a.Username] = cur
	out := cur
	return &out, nil
}

func (m *MemoryRepository) GetByUsername(_ context.Context, username string) (*models.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[username]
	if !ok {
		return nil, nil
	}
	return &a, nil
}
