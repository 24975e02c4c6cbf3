package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/models"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/middleware"
)

const (
	issuer    = "fishcollege-api"
	roleAdmin = "admin"
)

var ErrMissingSecret = errors.New("JWT secret is not configured")

// GenerateAccessToken creates a signed HS256 access token for the admin
func GenerateAccessToken(secret string, a *models.Admin, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  a.Username,
		"name": a.Name,
		"role": roleAdmin,
		"iss":  issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verifier checks tokens issued by GenerateAccessToken.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
		),
	}
}

type token struct {
	claims jwt.MapClaims
}

// Claims decodes the token claims into v, typically *map[string]interface{}.
func (t token) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Verify rejects every token when the verifier has no secret.
func (v *Verifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	if len(v.secret) == 0 {
		return nil, ErrMissingSecret
	}
	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}); err != nil {
		return nil, err
	}
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		return nil, errors.New("token has no expiry")
	}
	if role, _ := claims["role"].(string); role != roleAdmin {
		return nil, fmt.Errorf("token role %q is not allowed", role)
	}
	return token{claims: claims}, nil
}
