package repository

import (
	"context"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/content"
)

// Repository persists records, one collection per kind.
type Repository interface {
	Create(ctx context.Context, r *content.Record) (string, error)
	Get(ctx context.Context, kind, id string) (*content.Record, error)
	GetBySlug(ctx context.Context, kind, slug string) (*content.Record, error)
	List(ctx context.Context, kind string, f content.Filter) ([]*content.Record, error)
	Count(ctx context.Context, kind string, f content.Filter) (int64, error)
	Replace(ctx context.Context, r *content.Record) error
	Delete(ctx context.Context, kind, id string) error
	SlugExists(ctx context.Context, kind, slug, excludeID string) (bool, error)
	SetOrder(ctx context.Context, kind string, items []content.OrderItem) error
}
