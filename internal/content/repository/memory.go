package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/content"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo is an in-memory repository used by unit tests and as the
// fallback when MongoDB is unreachable in development.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]map[string]*content.Record // kind -> id -> record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]map[string]*content.Record)}
}

func (m *MemoryRepo) Create(_ context.Context, r *content.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = primitive.NewObjectID().Hex()
	}
	byID, ok := m.store[r.Kind]
	if !ok {
		byID = make(map[string]*content.Record)
		m.store[r.Kind] = byID
	}
	byID[r.ID] = r.Clone()
	return r.ID, nil
}

func (m *MemoryRepo) Get(_ context.Context, kind, id string) (*content.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.store[kind][id]; ok {
		return r.Clone(), nil
	}
	return nil, content.ErrNotFound
}

func (m *MemoryRepo) GetBySlug(_ context.Context, kind, slug string) (*content.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.store[kind] {
		if r.Slug == slug {
			return r.Clone(), nil
		}
	}
	return nil, content.ErrNotFound
}

func matches(r *content.Record, f content.Filter) bool {
	if f.Section != "" && r.Section != f.Section {
		return false
	}
	if f.Subsection != "" && r.Subsection != f.Subsection {
		return false
	}
	if f.Published != nil && r.IsPublished != *f.Published {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(r.Title), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func (m *MemoryRepo) List(_ context.Context, kind string, f content.Filter) ([]*content.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*content.Record, 0, len(m.store[kind]))
	for _, r := range m.store[kind] {
		if matches(r, f) {
			out = append(out, r.Clone())
		}
	}
	// display order, newest first among equal positions
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryRepo) Count(_ context.Context, kind string, f content.Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, r := range m.store[kind] {
		if matches(r, f) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepo) Replace(_ context.Context, r *content.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[r.Kind][r.ID]; !ok {
		return content.ErrNotFound
	}
	m.store[r.Kind][r.ID] = r.Clone()
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[kind][id]; !ok {
		return content.ErrNotFound
	}
	delete(m.store[kind], id)
	return nil
}

func (m *MemoryRepo) SlugExists(_ context.Context, kind, slug, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, r := range m.store[kind] {
		if r.Slug == slug && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepo) SetOrder(_ context.Context, kind string, items []content.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		if _, ok := m.store[kind][it.ID]; !ok {
			return content.ErrNotFound
		}
	}
	for _, it := range items {
		m.store[kind][it.ID].Order = it.Order
	}
	return nil
}
