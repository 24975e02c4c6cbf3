package admins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/config"
)

func TestSeedAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	a, err := svc.Seed(ctx, config.AdminConfig{Username: "admin", Password: "s3cret", Name: "Office"})
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.NotEqual(t, "s3cret", a.PasswordHash)

	got, err := svc.Authenticate(ctx, "admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Office", got.Name)

	_, err = svc.Authenticate(ctx, "admin", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSeed_KeepsMatchingHashAndRotatesPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	cfg := config.AdminConfig{Username: "admin", Password: "first"}

	a1, err := svc.Seed(ctx, cfg)
	require.NoError(t, err)
	a2, err := svc.Seed(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, a1.PasswordHash, a2.PasswordHash)
	assert.Equal(t, a1.ID, a2.ID)

	cfg.Password = "second"
	_, err = svc.Seed(ctx, cfg)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "admin", "first")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "admin", "second")
	require.NoError(t, err)
}

func TestSeed_WithHashAndMissingCredentials(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	a, err := svc.Seed(ctx, config.AdminConfig{})
	require.NoError(t, err)
	assert.Nil(t, a)

	_, err = svc.Seed(ctx, config.AdminConfig{Username: "admin"})
	require.Error(t, err)

	hash, err := HashPassword("from-hash")
	require.NoError(t, err)
	_, err = svc.Seed(ctx, config.AdminConfig{Username: "admin", PasswordHash: hash})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "admin", "from-hash")
	require.NoError(t, err)
}
