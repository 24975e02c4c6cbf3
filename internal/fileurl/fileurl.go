// Package fileurl builds public URLs for uploaded documents and images.
package fileurl

import (
	"net/url"
	"path"
	"strings"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/models"
)

// Upload subdirectories served under /uploads.
const (
	DirDocuments    = "documents"
	DirImages       = "images"
	DirFaculty      = "faculty"
	DirApplications = "applications"
)

// Prefix is the route under which stored files are served.
const Prefix = "/uploads"

// Builder constructs absolute (or host-relative when Base is empty) file URLs.
type Builder struct {
	Base string
}

func New(base string) Builder {
	return Builder{Base: strings.TrimRight(strings.TrimSpace(base), "/")}
}

// For returns the URL of name inside dir. An empty name yields "".
func (b Builder) For(dir, name string) string {
	if name == "" {
		return ""
	}
	p := Prefix + "/"
	if dir = strings.Trim(dir, "/"); dir != "" {
		p += url.PathEscape(dir) + "/"
	}
	return strings.TrimRight(b.Base, "/") + p + url.PathEscape(name)
}

func (b Builder) Document(name string) string { return b.For(DirDocuments, name) }
func (b Builder) Image(name string) string    { return b.For(DirImages, name) }
func (b Builder) Faculty(name string) string  { return b.For(DirFaculty, name) }

// ThumbnailName is the stored name of the thumbnail generated for name,
// encoded with extension ext.
func ThumbnailName(name, ext string) string {
	if name == "" {
		return ""
	}
	return "thumb_" + strings.TrimSuffix(name, path.Ext(name)) + ext
}

// Thumbnail returns the URL of a stored thumbnail inside dir.
func (b Builder) Thumbnail(dir, thumbnail string) string { return b.For(dir, thumbnail) }

// Decorate fills the derived URL fields of the given file metadata in place.
func (b Builder) Decorate(files []models.FileMeta) {
	for i := range files {
		files[i].URL = b.For(files[i].Dir, files[i].Filename)
		files[i].ThumbnailURL = b.Thumbnail(files[i].Dir, files[i].Thumbnail)
	}
}
