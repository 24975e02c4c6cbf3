package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/admins"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/config"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/sessions"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/tokens"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/middleware"
)

// LoginRequest is the admin panel login form.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	jwt         config.JWTConfig
	verifier    *tokens.Verifier
	adminsSvc   *admins.Service
	sessionsSvc *sessions.Service
}

func NewAuthHandler(cfg config.JWTConfig, a *admins.Service, s *sessions.Service) *AuthHandler {
	return &AuthHandler{jwt: cfg, verifier: tokens.NewVerifier(cfg.Secret), adminsSvc: a, sessionsSvc: s}
}

// Register routes under /auth. requireAdmin guards /auth/me.
func (h *AuthHandler) Register(rg gin.IRouter, requireAdmin gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
	if requireAdmin != nil {
		a.GET("/me", requireAdmin, h.Me)
	}
}

func (h *AuthHandler) expiresIn() int {
	return int(h.jwt.AccessTokenTTL / time.Second)
}

// Login checks admin credentials and returns an access/refresh token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.jwt.Secret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin login is not configured"})
		return
	}
	a, err := h.adminsSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, admins.ErrInvalidCredentials) {
			logger.Warnf("failed login for %q from %s", req.Username, c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
			return
		}
		logger.Errorf("admin lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), a.Username, h.jwt.RefreshTokenTTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.jwt.Secret, a, h.jwt.AccessTokenTTL)
	if err != nil {
		logger.Errorf("failed to sign access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "refreshToken": rft, "admin": a, "expiresIn": h.expiresIn()})
}

// Refresh rotates a refresh token and returns a new token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	next, sess, err := h.sessionsSvc.Rotate(c.Request.Context(), req.RefreshToken, h.jwt.RefreshTokenTTL)
	if err != nil {
		logger.Errorf("refresh: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	a, err := h.adminsSvc.GetByUsername(c.Request.Context(), sess.Username)
	if err != nil || a == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin account no longer exists"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.jwt.Secret, a, h.jwt.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "refreshToken": next, "expiresIn": h.expiresIn()})
}

// Logout invalidates the refresh token and blacklists the presented access token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if scheme, at, ok := strings.Cut(c.GetHeader("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		if ttl := h.revocationTTL(c, at); ttl > 0 {
			if err := sessions.BlacklistAccessToken(c.Request.Context(), at, ttl); err != nil {
				logger.Errorf("blacklist access token: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
				return
			}
		}
	}
	if err := h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// revocationTTL is how long a presented access token must stay blacklisted.
// Tokens this service did not sign get 0; the result never exceeds the
// access token lifetime.
func (h *AuthHandler) revocationTTL(c *gin.Context, raw string) time.Duration {
	if _, err := h.verifier.Verify(c.Request.Context(), raw); err != nil {
		return 0
	}
	exp, err := parseExpFromJWT(raw)
	if err != nil {
		return 0
	}
	ttl := time.Until(exp)
	if ttl > h.jwt.AccessTokenTTL {
		ttl = h.jwt.AccessTokenTTL
	}
	return ttl
}

// Me returns the authenticated admin's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, _ := middleware.Claims(c)
	username, _ := claims["sub"].(string)
	a, err := h.adminsSvc.GetByUsername(c.Request.Context(), username)
	if err != nil || a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": a})
}

// parseExpFromJWT decodes the JWT payload and returns the `exp` claim as time.Time.
// It does not check the signature; callers verify first.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		if b, err = base64.StdEncoding.DecodeString(parts[1]); err != nil {
			return time.Time{}, err
		}
	}
	var claims struct {
		Exp *json.Number `json:"exp"`
	}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.Exp == nil {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	if i, err := claims.Exp.Int64(); err == nil {
		return time.Unix(i, 0), nil
	}
	f, err := claims.Exp.Float64()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(f), 0), nil
}
