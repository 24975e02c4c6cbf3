package fileurl

import (
	"testing"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBuilderFor(t *testing.T) {
	b := New("https://api.college.example/ ")
	assert.Equal(t, "https://api.college.example/uploads/documents/brochure.pdf", b.Document("brochure.pdf"))
	assert.Equal(t, "https://api.college.example/uploads/images/a.png", b.Image("a.png"))
	assert.Equal(t, "https://api.college.example/uploads/faculty/dr%20x.jpg", b.Faculty("dr x.jpg"))
	assert.Equal(t, "", b.Image(""))
}

func TestBuilderFor_RelativeWhenBaseEmpty(t *testing.T) {
	b := New("")
	assert.Equal(t, "/uploads/images/x.webp", b.For("/images/", "x.webp"))
	assert.Equal(t, "/uploads/x.webp", b.For("", "x.webp"))
}

func TestDecorate(t *testing.T) {
	files := []models.FileMeta{
		{Filename: "p.png", Dir: DirImages, Thumbnail: "thumb_p.png"},
		{Filename: "syllabus.pdf", Dir: DirDocuments},
	}
	New("http://localhost:5000").Decorate(files)
	assert.Equal(t, "http://localhost:5000/uploads/images/p.png", files[0].URL)
	assert.Equal(t, "http://localhost:5000/uploads/images/thumb_p.png", files[0].ThumbnailURL)
	assert.Equal(t, "", files[1].ThumbnailURL)
}

func TestThumbnail(t *testing.T) {
	assert.Equal(t, "thumb_lab.jpg", ThumbnailName("lab.webp", ".jpg"))
	assert.Equal(t, "thumb_dean.png", ThumbnailName("dean.png", ".png"))
	assert.Equal(t, "", ThumbnailName("", ".png"))

	b := New("https://api.college.example")
	assert.Equal(t, "https://api.college.example/uploads/faculty/thumb_dean.png", b.Thumbnail(DirFaculty, "thumb_dean.png"))
	assert.Equal(t, "", b.Thumbnail(DirImages, ""))
}
