package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTTL = 7 * 24 * time.Hour

// Repository provides session persistence operations. GetByRefresh returns
// (nil, nil) for unknown tokens.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByRefresh(ctx context.Context, refresh string) (*Session, error)
	DeleteByRefresh(ctx context.Context, refresh string) error
}

func fillDefaults(s *Session) {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = now.Add(defaultTTL)
	}
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates a unique refresh token index and a TTL index that
// lets MongoDB drop expired sessions.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "refreshToken", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, s *Session) error {
	fillDefaults(s)
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *MongoRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	var s Session
	if err := r.col.FindOne(ctx, bson.M{"refreshToken": refresh}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"refreshToken": refresh})
	return err
}

// MemoryRepository keeps sessions in process memory; used when neither
// Redis nor MongoDB is available.
type MemoryRepository struct {
	mu    sync.Mutex
	store map[string]Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]Session)}
}

func (m *MemoryRepository) Create(_ context.Context, s *Session) error {
	fillDefaults(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.RefreshToken] = *s
	return nil
}

func (m *MemoryRepository) GetByRefresh(_ context.Context, refresh string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[refresh]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryRepository) DeleteByRefresh(_ context.Context, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, refresh)
	return nil
}
