package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/sessions"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
)

// ClaimsKey is the gin context key holding verified token claims.
const ClaimsKey = "claims"

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// bearer extracts the token from an "Authorization: Bearer <token>" header.
func bearer(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func verify(c *gin.Context, ver Verifier, token string) (map[string]interface{}, int, string) {
	revoked, err := sessions.IsAccessTokenBlacklisted(c.Request.Context(), token)
	if err != nil {
		logger.Warnf("blacklist lookup failed: %v", err)
	}
	if revoked {
		return nil, http.StatusUnauthorized, "token revoked"
	}
	tok, err := ver.Verify(c.Request.Context(), token)
	if err != nil {
		return nil, http.StatusUnauthorized, "invalid token"
	}
	var claims map[string]interface{}
	if err := tok.Claims(&claims); err != nil {
		return nil, http.StatusUnauthorized, "failed to parse claims"
	}
	return claims, 0, ""
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		token, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}
		claims, status, msg := verify(c, ver, token)
		if claims == nil {
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuth sets claims when a valid Bearer token is present and lets
// every request through otherwise.
func OptionalAuth(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearer(c); ok && ver != nil {
			if claims, _, _ := verify(c, ver, token); claims != nil {
				c.Set(ClaimsKey, claims)
			}
		}
		c.Next()
	}
}

// Claims returns the verified claims of the request, if any.
func Claims(c *gin.Context) (map[string]interface{}, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	cm, ok := v.(map[string]interface{})
	return cm, ok
}

// IsAuthenticated reports whether a previous middleware verified a token.
func IsAuthenticated(c *gin.Context) bool {
	_, ok := Claims(c)
	return ok
}

func subject(c *gin.Context) string {
	if cm, ok := Claims(c); ok {
		if sub, ok := cm["sub"].(string); ok {
			return sub
		}
	}
	return ""
}
