package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/content"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/content/repository"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/fileurl"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/models"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/storage"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/metrics"
)

// Field names accepted by AttachFiles.
const (
	FieldDocuments = "documents"
	FieldImages    = "images"
)

// FileStore is the part of storage.Store the service needs.
type FileStore interface {
	SaveAll(ctx context.Context, dir string, ups []storage.Upload) ([]models.FileMeta, error)
	Delete(ctx context.Context, f models.FileMeta) error
	DeleteAll(ctx context.Context, files []models.FileMeta)
}

// Input is the full set of client-supplied fields for a new record.
type Input struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Slug        string                 `json:"slug"`
	Section     string                 `json:"section"`
	Subsection  string                 `json:"subsection"`
	IsPublished bool                   `json:"isPublished"`
	Order       int                    `json:"order"`
	Data        map[string]interface{} `json:"data"`
}

// Service implements record operations for every kind on top of a repository.
type Service struct {
	repo  repository.Repository
	files FileStore
	urls  fileurl.Builder
	now   func() time.Time
}

// New returns a Service. files may be nil when uploads are disabled.
func New(repo repository.Repository, files FileStore, urls fileurl.Builder) *Service {
	return &Service{repo: repo, files: files, urls: urls, now: func() time.Time { return time.Now().UTC() }}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(files FileStore, urls fileurl.Builder) *Service {
	return New(repository.NewMemoryRepo(), files, urls)
}

func record(kind, op string, err error) {
	metrics.ContentOperations.WithLabelValues(kind, op, metrics.Outcome(err)).Inc()
}

func lookup(kind string) (content.Kind, error) {
	k, ok := content.LookupKind(kind)
	if !ok {
		return content.Kind{}, fmt.Errorf("%w: %s", content.ErrUnknownKind, kind)
	}
	return k, nil
}

func (s *Service) decorate(r *content.Record) *content.Record {
	s.urls.Decorate(r.Documents)
	s.urls.Decorate(r.Images)
	return r
}

func (s *Service) List(ctx context.Context, kind string, f content.Filter) ([]*content.Record, error) {
	if _, err := lookup(kind); err != nil {
		return nil, err
	}
	list, err := s.repo.List(ctx, kind, f)
	if err != nil {
		return nil, err
	}
	for _, r := range list {
		s.decorate(r)
	}
	return list, nil
}

func (s *Service) Count(ctx context.Context, kind string, f content.Filter) (int64, error) {
	if _, err := lookup(kind); err != nil {
		return 0, err
	}
	return s.repo.Count(ctx, kind, f)
}

func (s *Service) Get(ctx context.Context, kind, id string) (*content.Record, error) {
	if _, err := lookup(kind); err != nil {
		return nil, err
	}
	r, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return s.decorate(r), nil
}

func (s *Service) GetBySlug(ctx context.Context, kind, slug string) (*content.Record, error) {
	if _, err := lookup(kind); err != nil {
		return nil, err
	}
	r, err := s.repo.GetBySlug(ctx, kind, slug)
	if err != nil {
		return nil, err
	}
	return s.decorate(r), nil
}

// uniqueSlug derives a slug from base that no other record of kind uses,
// appending -2, -3, ... on collision.
func (s *Service) uniqueSlug(ctx context.Context, kind, base, excludeID string) (string, error) {
	base = content.Slugify(base)
	if base == "" {
		base = kind
	}
	candidate := base
	for i := 2; ; i++ {
		exists, err := s.repo.SlugExists(ctx, kind, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}

// Create validates in, stores the uploaded files and persists a new record.
func (s *Service) Create(ctx context.Context, kind string, in Input, docs, images []storage.Upload) (rec *content.Record, err error) {
	defer func() { record(kind, "create", err) }()
	k, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	now := s.now()
	r := &content.Record{
		Kind:        k.Name,
		Title:       strings.TrimSpace(in.Title),
		Description: content.SanitizeHTML(in.Description),
		Section:     strings.TrimSpace(in.Section),
		Subsection:  strings.TrimSpace(in.Subsection),
		IsPublished: in.IsPublished,
		Order:       in.Order,
		Data:        in.Data,
		Documents:   []models.FileMeta{},
		Images:      []models.FileMeta{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := k.Validate(r); err != nil {
		return nil, err
	}
	base := in.Slug
	if strings.TrimSpace(base) == "" {
		base = r.Title
	}
	if r.Slug, err = s.uniqueSlug(ctx, k.Name, base, ""); err != nil {
		return nil, err
	}

	if len(docs)+len(images) > 0 {
		if s.files == nil {
			return nil, fmt.Errorf("%w: uploads are disabled", content.ErrValidation)
		}
		if r.Documents, err = s.files.SaveAll(ctx, fileurl.DirDocuments, docs); err != nil {
			return nil, err
		}
		if r.Images, err = s.files.SaveAll(ctx, k.ImageDir, images); err != nil {
			s.files.DeleteAll(ctx, r.Documents)
			return nil, err
		}
	}

	if _, err = s.repo.Create(ctx, r); err != nil {
		if s.files != nil {
			s.files.DeleteAll(ctx, r.Files())
		}
		return nil, err
	}
	return s.decorate(r), nil
}

func applyPatch(r *content.Record, p content.Patch) {
	if p.Title != nil {
		r.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		r.Description = content.SanitizeHTML(*p.Description)
	}
	if p.Section != nil {
		r.Section = strings.TrimSpace(*p.Section)
	}
	if p.Subsection != nil {
		r.Subsection = strings.TrimSpace(*p.Subsection)
	}
	if p.IsPublished != nil {
		r.IsPublished = *p.IsPublished
	}
	if p.Order != nil {
		r.Order = *p.Order
	}
	if len(p.Data) > 0 {
		if r.Data == nil {
			r.Data = make(map[string]interface{}, len(p.Data))
		}
		for k, v := range p.Data {
			if v == nil {
				delete(r.Data, k)
				continue
			}
			r.Data[k] = v
		}
	}
}

// Update merges p into the stored record. Only provided fields change.
func (s *Service) Update(ctx context.Context, kind, id string, p content.Patch) (rec *content.Record, err error) {
	defer func() { record(kind, "update", err) }()
	k, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	r, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	applyPatch(r, p)
	if err := k.Validate(r); err != nil {
		return nil, err
	}
	if p.Slug != nil {
		if r.Slug, err = s.uniqueSlug(ctx, kind, *p.Slug, id); err != nil {
			return nil, err
		}
	}
	r.UpdatedAt = s.now()
	if err := s.repo.Replace(ctx, r); err != nil {
		return nil, err
	}
	return s.decorate(r), nil
}

// Delete removes the record and then its stored files.
func (s *Service) Delete(ctx context.Context, kind, id string) (err error) {
	defer func() { record(kind, "delete", err) }()
	if _, err = lookup(kind); err != nil {
		return err
	}
	r, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if err = s.repo.Delete(ctx, kind, id); err != nil {
		return err
	}
	if s.files != nil {
		s.files.DeleteAll(ctx, r.Files())
	}
	return nil
}

// Reorder assigns display positions to records of kind.
func (s *Service) Reorder(ctx context.Context, kind string, items []content.OrderItem) (err error) {
	defer func() { record(kind, "reorder", err) }()
	if _, err = lookup(kind); err != nil {
		return err
	}
	return s.repo.SetOrder(ctx, kind, items)
}

// AttachFiles stores ups and appends them to the record's documents or images.
func (s *Service) AttachFiles(ctx context.Context, kind, id, field string, ups []storage.Upload) (rec *content.Record, err error) {
	defer func() { record(kind, "attach", err) }()
	k, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	if s.files == nil {
		return nil, fmt.Errorf("%w: uploads are disabled", content.ErrValidation)
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("%w: no files provided", content.ErrValidation)
	}
	dir := fileurl.DirDocuments
	switch field {
	case FieldDocuments:
	case FieldImages:
		dir = k.ImageDir
	default:
		return nil, fmt.Errorf("%w: unknown file field %q", content.ErrValidation, field)
	}
	r, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	saved, err := s.files.SaveAll(ctx, dir, ups)
	if err != nil {
		return nil, err
	}
	if field == FieldImages {
		r.Images = append(r.Images, saved...)
	} else {
		r.Documents = append(r.Documents, saved...)
	}
	r.UpdatedAt = s.now()
	if err := s.repo.Replace(ctx, r); err != nil {
		s.files.DeleteAll(ctx, saved)
		return nil, err
	}
	return s.decorate(r), nil
}

func without(files []models.FileMeta, name string) ([]models.FileMeta, *models.FileMeta) {
	for i := range files {
		if files[i].Filename == name {
			removed := files[i]
			out := append(append([]models.FileMeta{}, files[:i]...), files[i+1:]...)
			return out, &removed
		}
	}
	return files, nil
}

// DetachFile removes filename from the record and deletes the stored file.
func (s *Service) DetachFile(ctx context.Context, kind, id, filename string) (rec *content.Record, err error) {
	defer func() { record(kind, "detach", err) }()
	if _, err = lookup(kind); err != nil {
		return nil, err
	}
	r, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	var removed *models.FileMeta
	if r.Documents, removed = without(r.Documents, filename); removed == nil {
		r.Images, removed = without(r.Images, filename)
	}
	if removed == nil {
		return nil, content.ErrNotFound
	}
	r.UpdatedAt = s.now()
	if err := s.repo.Replace(ctx, r); err != nil {
		return nil, err
	}
	if s.files != nil {
		if err := s.files.Delete(ctx, *removed); err != nil {
			logger.Warnf("%s %s: stored file %s left behind: %v", kind, id, removed.Filename, err)
		}
	}
	return s.decorate(r), nil
}
