package admins

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/config"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/models"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Service encapsulates admin account logic
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Seed creates or refreshes the configured admin account. A configured
// hash wins over a plain password; the stored hash is only replaced when the
// configured credentials no longer match it.
func (s *Service) Seed(ctx context.Context, cfg config.AdminConfig) (*models.Admin, error) {
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		return nil, nil
	}
	if cfg.PasswordHash == "" && cfg.Password == "" {
		return nil, fmt.Errorf("admin %q has no ADMIN_PASSWORD or ADMIN_PASSWORD_HASH", username)
	}
	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	hash := cfg.PasswordHash
	if hash == "" {
		if existing != nil && bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(cfg.Password)) == nil {
			hash = existing.PasswordHash
		} else if hash, err = HashPassword(cfg.Password); err != nil {
			return nil, err
		}
	}
	name := cfg.Name
	if name == "" {
		name = username
	}
	if existing != nil && existing.PasswordHash == hash && existing.Name == name {
		return existing, nil
	}
	a, err := s.repo.Upsert(ctx, &models.Admin{Username: username, Name: name, PasswordHash: hash})
	if err != nil {
		return nil, err
	}
	logger.Infof("admin account %q seeded", username)
	return a, nil
}

// Authenticate checks username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.Admin, error) {
	a, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return s.repo.GetByUsername(ctx, username)
}
