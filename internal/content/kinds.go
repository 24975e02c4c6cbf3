package content

import (
	"fmt"
	"strings"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/fileurl"
)

// Kind describes one managed collection of records.
type Kind struct {
	// Name is the URL segment, e.g. /api/programs.
	Name       string
	Collection string
	Label      string
	// Required lists fields that must be non-blank strings: "title",
	// "description", or "data.<key>".
	Required []string
	// ImageDir is the upload subdirectory for the kind's images.
	ImageDir string
}

var kinds = []Kind{
	{Name: "content", Collection: "contents", Label: "Content", Required: []string{"title", "description"}, ImageDir: fileurl.DirImages},
	{Name: "programs", Collection: "programs", Label: "Programs", Required: []string{"title", "description"}, ImageDir: fileurl.DirImages},
	{Name: "faculty", Collection: "faculties", Label: "Faculty", Required: []string{"title", "data.designation"}, ImageDir: fileurl.DirFaculty},
	{Name: "research", Collection: "researches", Label: "Research", Required: []string{"title", "description"}, ImageDir: fileurl.DirImages},
	{Name: "news", Collection: "news", Label: "News & Events", Required: []string{"title", "description"}, ImageDir: fileurl.DirImages},
	{Name: "extension-activities", Collection: "extensionactivities", Label: "Extension Activities", Required: []string{"title", "description"}, ImageDir: fileurl.DirImages},
	{Name: "infrastructure", Collection: "infrastructures", Label: "Infrastructure", Required: []string{"title"}, ImageDir: fileurl.DirImages},
	{Name: "student-corner", Collection: "studentcorners", Label: "Student Corner", Required: []string{"title", "description"}, ImageDir: fileurl.DirImages},
}

// Kinds returns every registered kind in display order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// LookupKind finds a kind by its URL name.
func LookupKind(name string) (Kind, bool) {
	for _, k := range kinds {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

// Validate checks the kind's required fields on r.
func (k Kind) Validate(r *Record) error {
	for _, field := range k.Required {
		var v string
		switch {
		case field == "title":
			v = r.Title
		case field == "description":
			v = r.Description
		case strings.HasPrefix(field, "data."):
			s, _ := r.Data[strings.TrimPrefix(field, "data.")].(string)
			v = s
		}
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, field)
		}
	}
	return nil
}
