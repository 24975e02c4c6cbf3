package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"

	"github.com/google/uuid"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/fileurl"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/models"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/metrics"
)

var (
	ErrNotFound        = errors.New("file not found")
	ErrTooLarge        = errors.New("file exceeds maximum upload size")
	ErrEmpty           = errors.New("file is empty")
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrInvalidPath     = errors.New("invalid file path")
)

// Backend persists raw objects under slash-separated keys.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Remove(ctx context.Context, key string) error
}

// Upload is a file received from a client, opened lazily.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// FromFileHeader adapts a multipart file part.
func FromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// FromFileHeaders adapts every part of a multipart file field.
func FromFileHeaders(fhs []*multipart.FileHeader) []Upload {
	out := make([]Upload, 0, len(fhs))
	for _, fh := range fhs {
		out = append(out, FromFileHeader(fh))
	}
	return out
}

// Store validates uploads, names them, writes them through a Backend and
// generates thumbnails for images.
type Store struct {
	backend Backend
	maxSize int64
}

func NewStore(b Backend, maxSize int64) *Store {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Store{backend: b, maxSize: maxSize}
}

// MaxSize returns the per-file upload limit in bytes.
func (s *Store) MaxSize() int64 { return s.maxSize }

func key(dir, name string) (string, error) {
	if !knownDirs[dir] || !validName(name) {
		return "", ErrInvalidPath
	}
	return path.Join(dir, name), nil
}

// Save stores up inside dir under a generated name and returns its metadata.
func (s *Store) Save(ctx context.Context, dir string, up Upload) (*models.FileMeta, error) {
	if !knownDirs[dir] {
		return nil, ErrInvalidPath
	}
	if up.Size > s.maxSize {
		return nil, ErrTooLarge
	}
	rc, err := up.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	mimeType, err := detectType(up.Name, up.ContentType, data)
	if err != nil {
		return nil, err
	}

	name := uuid.New().String() + extensionFor(up.Name, mimeType)
	k, _ := key(dir, name)
	if err := s.backend.Put(ctx, k, data, mimeType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	meta := &models.FileMeta{
		Filename:     name,
		OriginalName: sanitizeFilename(up.Name),
		FileSize:     int64(len(data)),
		MimeType:     mimeType,
		Dir:          dir,
	}

	if IsImageType(mimeType) {
		thumb, ext, err := makeThumbnail(data, mimeType)
		if err != nil {
			logger.Warnf("thumbnail for %s/%s skipped: %v", dir, name, err)
		} else {
			tname := fileurl.ThumbnailName(name, ext)
			tk, _ := key(dir, tname)
			if err := s.backend.Put(ctx, tk, thumb, TypeByName(tname)); err != nil {
				logger.Warnf("thumbnail write %s failed: %v", tk, err)
			} else {
				meta.Thumbnail = tname
			}
		}
	}

	metrics.UploadsStored.WithLabelValues(dir).Inc()
	metrics.UploadBytes.Add(float64(len(data)))
	return meta, nil
}

// SaveAll stores every upload; on failure the files already written are removed.
func (s *Store) SaveAll(ctx context.Context, dir string, ups []Upload) ([]models.FileMeta, error) {
	out := make([]models.FileMeta, 0, len(ups))
	for _, up := range ups {
		m, err := s.Save(ctx, dir, up)
		if err != nil {
			s.DeleteAll(ctx, out)
			return nil, fmt.Errorf("%s: %w", sanitizeFilename(up.Name), err)
		}
		out = append(out, *m)
	}
	return out, nil
}

// Open returns the stored file and its size.
func (s *Store) Open(ctx context.Context, dir, name string) (io.ReadCloser, int64, error) {
	k, err := key(dir, name)
	if err != nil {
		return nil, 0, err
	}
	return s.backend.Get(ctx, k)
}

// Delete removes a stored file and its thumbnail. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, f models.FileMeta) error {
	k, err := key(f.Dir, f.Filename)
	if err != nil {
		return err
	}
	if err := s.backend.Remove(ctx, k); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if f.Thumbnail != "" {
		if tk, err := key(f.Dir, f.Thumbnail); err == nil {
			if err := s.backend.Remove(ctx, tk); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}
	}
	return nil
}

// DeleteAll removes files best-effort, logging failures.
func (s *Store) DeleteAll(ctx context.Context, files []models.FileMeta) {
	for _, f := range files {
		if err := s.Delete(ctx, f); err != nil {
			logger.Warnf("failed to remove %s/%s: %v", f.Dir, f.Filename, err)
		}
	}
}
