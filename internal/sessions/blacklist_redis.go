package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "admin:blacklist:"

// blacklistClient holds revoked access tokens until they expire. Nil
// disables revocation checks.
var blacklistClient *redis.Client

// SetBlacklistClient configures the Redis client used for blacklist operations.
func SetBlacklistClient(c *redis.Client) {
	blacklistClient = c
}

// BlacklistAccessToken revokes token for ttl. No-op without Redis.
func BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if blacklistClient == nil {
		return nil
	}
	return blacklistClient.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
}

// IsAccessTokenBlacklisted reports whether token was revoked.
func IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	if blacklistClient == nil {
		return false, nil
	}
	exists, err := blacklistClient.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
