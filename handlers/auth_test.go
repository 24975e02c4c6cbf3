package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/admins"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/config"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/models"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/sessions"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/tokens"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/middleware"
)

const testSecret = "test-secret"

func newAuthRouter(t *testing.T) (*gin.Engine, *sessions.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	aSvc := admins.NewService(admins.NewMemoryRepository())
	_, err := aSvc.Seed(context.Background(), config.AdminConfig{Username: "principal", Password: "s3cret", Name: "Principal"})
	require.NoError(t, err)
	sSvc := sessions.NewService(sessions.NewMemoryRepository())
	cfg := config.JWTConfig{Secret: testSecret, AccessTokenTTL: 15 * time.Minute, RefreshTokenTTL: time.Hour}

	g := gin.New()
	NewAuthHandler(cfg, aSvc, sSvc).Register(g, middleware.AuthMiddleware(tokens.NewVerifier(testSecret)))
	return g, sSvc
}

func postJSON(g *gin.Engine, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

func login(t *testing.T, g *gin.Engine) tokenPair {
	t.Helper()
	w := postJSON(g, "/auth/login", `{"username":"principal","password":"s3cret"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p tokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	require.NotEmpty(t, p.AccessToken)
	require.NotEmpty(t, p.RefreshToken)
	return p
}

func TestLogin(t *testing.T) {
	g, _ := newAuthRouter(t)
	p := login(t, g)
	assert.Equal(t, 900, p.ExpiresIn)

	w := postJSON(g, "/auth/login", `{"username":"principal","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "accessToken")

	w = postJSON(g, "/auth/login", `{"username":"nobody","password":"s3cret"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(g, "/auth/login", `{"username":"principal"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMe(t *testing.T) {
	g, _ := newAuthRouter(t)
	p := login(t, g)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+p.AccessToken)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"principal"`)
	assert.NotContains(t, w.Body.String(), "passwordHash")

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w = httptest.NewRecorder()
	g.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	g, sSvc := newAuthRouter(t)
	p := login(t, g)

	w := postJSON(g, "/auth/refresh", `{"refreshToken":"`+p.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var next tokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))
	assert.NotEqual(t, p.RefreshToken, next.RefreshToken)
	assert.NotEmpty(t, next.AccessToken)

	// the old refresh token is single use
	w = postJSON(g, "/auth/refresh", `{"refreshToken":"`+p.RefreshToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	sess, err := sSvc.ValidateRefresh(context.Background(), next.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "principal", sess.Username)

	w = postJSON(g, "/auth/refresh", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	sessions.SetBlacklistClient(rdb)
	defer sessions.SetBlacklistClient(nil)

	g, sSvc := newAuthRouter(t)
	p := login(t, g)

	w := postJSON(g, "/auth/logout", `{"refreshToken":"`+p.RefreshToken+`"}`, p.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	revoked, err := sessions.IsAccessTokenBlacklisted(context.Background(), p.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)
	ttl := m.TTL("admin:blacklist:" + p.AccessToken)
	assert.True(t, ttl > 0 && ttl <= 15*time.Minute, "ttl %s", ttl)

	sess, err := sSvc.ValidateRefresh(context.Background(), p.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, sess)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+p.AccessToken)
	w = httptest.NewRecorder()
	g.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParseExpFromJWT(t *testing.T) {
	enc := func(v string) string { return base64.RawURLEncoding.EncodeToString([]byte(v)) }

	exp, err := parseExpFromJWT("h." + enc(`{"exp":1700000000}`) + ".s")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), exp.Unix())

	exp, err = parseExpFromJWT("h." + enc(`{"exp":1700000000.5}`) + ".s")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), exp.Unix())

	_, err = parseExpFromJWT("h." + enc(`{"sub":"x"}`) + ".s")
	assert.Error(t, err)
	_, err = parseExpFromJWT("garbage")
	assert.Error(t, err)
}

func TestLogoutOnlyBlacklistsOwnTokens(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	sessions.SetBlacklistClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer sessions.SetBlacklistClient(nil)

	g, _ := newAuthRouter(t)
	p := login(t, g)
	admin := &models.Admin{Username: "principal", Name: "Principal"}

	foreign, err := tokens.GenerateAccessToken("some-other-secret", admin, 24*time.Hour)
	require.NoError(t, err)
	w := postJSON(g, "/auth/logout", `{"refreshToken":"`+p.RefreshToken+`"}`, foreign)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, m.Exists("admin:blacklist:"+foreign))

	w = postJSON(g, "/auth/logout", `{"refreshToken":"x"}`, "not-a-jwt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, m.Keys())

	// a long-lived token of ours is held no longer than the access token TTL
	long, err := tokens.GenerateAccessToken(testSecret, admin, 24*time.Hour)
	require.NoError(t, err)
	w = postJSON(g, "/auth/logout", `{"refreshToken":"x"}`, long)
	require.Equal(t, http.StatusOK, w.Code)
	ttl := m.TTL("admin:blacklist:" + long)
	assert.True(t, ttl > 0 && ttl <= 15*time.Minute, "ttl %s", ttl)
}

func TestLoginWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	aSvc := admins.NewService(admins.NewMemoryRepository())
	_, err := aSvc.Seed(context.Background(), config.AdminConfig{Username: "principal", Password: "s3cret"})
	require.NoError(t, err)
	sSvc := sessions.NewService(sessions.NewMemoryRepository())

	g := gin.New()
	NewAuthHandler(config.JWTConfig{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}, aSvc, sSvc).Register(g, nil)

	w := postJSON(g, "/auth/login", `{"username":"principal","password":"s3cret"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "refreshToken")
}
