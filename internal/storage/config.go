package storage

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/fileurl"
)

const (
	MimeTypePDF  = "application/pdf"
	MimeTypeDOC  = "application/msword"
	MimeTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

// DefaultMaxSize bounds a single upload when no limit is configured.
const DefaultMaxSize int64 = 10 << 20

// allowedTypes maps accepted MIME types to their canonical extension.
var allowedTypes = map[string]string{
	MimeTypePDF:  ".pdf",
	MimeTypeDOC:  ".doc",
	MimeTypeDOCX: ".docx",
	MimeTypeJPEG: ".jpg",
	MimeTypePNG:  ".png",
	MimeTypeGIF:  ".gif",
	MimeTypeWebP: ".webp",
}

var extTypes = map[string]string{
	".pdf":  MimeTypePDF,
	".doc":  MimeTypeDOC,
	".docx": MimeTypeDOCX,
	".jpg":  MimeTypeJPEG,
	".jpeg": MimeTypeJPEG,
	".png":  MimeTypePNG,
	".gif":  MimeTypeGIF,
	".webp": MimeTypeWebP,
}

// knownDirs are the only subdirectories files may be written to.
var knownDirs = map[string]bool{
	fileurl.DirDocuments:    true,
	fileurl.DirImages:       true,
	fileurl.DirFaculty:      true,
	fileurl.DirApplications: true,
}

// PublicDirs are served anonymously under /uploads. Applicant files are not.
var PublicDirs = []string{fileurl.DirDocuments, fileurl.DirImages, fileurl.DirFaculty}

// IsAllowedType reports whether uploads of the given MIME type are accepted.
func IsAllowedType(mimeType string) bool {
	_, ok := allowedTypes[mimeType]
	return ok
}

// IsImageType reports whether the MIME type gets a thumbnail.
func IsImageType(mimeType string) bool {
	switch mimeType {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP:
		return true
	}
	return false
}

// TypeByName returns the MIME type implied by a file's extension, or
// application/octet-stream.
func TypeByName(name string) string {
	if t, ok := extTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}

// claimedType is the allowed type the client asserts through the declared
// Content-Type or, failing that, the file extension. "" when neither is allowed.
func claimedType(name, declared string) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && IsAllowedType(mt) {
			return mt
		}
	}
	if t := TypeByName(name); IsAllowedType(t) {
		return t
	}
	return ""
}

// sniffedType walks the detected type and its parents for an allowed type.
// Word files are containers: an OLE or zip body counts as .doc or .docx
// only when the client claims that type.
func sniffedType(data []byte, claimed string) string {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		for t := range allowedTypes {
			if m.Is(t) {
				return t
			}
		}
	}
	switch {
	case claimed == MimeTypeDOC && detected.Is("application/x-ole-storage"):
		return MimeTypeDOC
	case claimed == MimeTypeDOCX && detected.Is("application/zip"):
		return MimeTypeDOCX
	}
	return detected.String()
}

// detectType sniffs the content and checks it against the allow list and
// against the type the client claimed.
func detectType(name, declared string, data []byte) (string, error) {
	claimed := claimedType(name, declared)
	mt := sniffedType(data, claimed)
	if !IsAllowedType(mt) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt)
	}
	if claimed != "" && claimed != mt {
		return "", fmt.Errorf("%w: content is %s, not %s", ErrUnsupportedType, mt, claimed)
	}
	return mt, nil
}

// extensionFor keeps the original extension when it agrees with the type.
func extensionFor(name, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if extTypes[ext] == mimeType {
		return ext
	}
	return allowedTypes[mimeType]
}

func sanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	replacer := strings.NewReplacer(
		" ", "-",
		"'", "",
		"\"", "",
		"<", "",
		">", "",
		"&", "",
		"#", "",
		"?", "",
		"%", "",
	)
	filename = replacer.Replace(filename)
	if filename == "." || filename == "/" {
		return "file"
	}
	return filename
}

// validName rejects anything that could escape the upload directory.
func validName(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}
