package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "admin:session:"

// RedisRepository keeps admin refresh sessions as JSON values that expire
// together with the session.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository uses defaultRedisPrefix when prefix is empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	fillDefaults(s)
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	// Redis rejects a zero TTL; an already expired session lives one second.
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return r.client.Set(ctx, r.prefix+s.RefreshToken, b, ttl).Err()
}

// GetByRefresh returns nil, nil for unknown or expired tokens.
func (r *RedisRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.prefix+refresh).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, err
	}
	s := new(Session)
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	if s.Expired(time.Now().UTC()) {
		_ = r.DeleteByRefresh(ctx, refresh)
		return nil, nil
	}
	return s, nil
}

func (r *RedisRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	return r.client.Del(ctx, r.prefix+refresh).Err()
}
