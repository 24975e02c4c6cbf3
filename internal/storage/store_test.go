package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bytesUpload(name, contentType string, data []byte) Upload {
	return Upload{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newLocalStore(t *testing.T, max int64) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	b, err := NewLocalBackend(root)
	require.NoError(t, err)
	return NewStore(b, max), root
}

func TestSave_PDF(t *testing.T) {
	s, root := newLocalStore(t, 1<<20)
	data := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

	meta, err := s.Save(context.Background(), "documents", bytesUpload("Admission Brochure.pdf", "application/pdf", data))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(meta.Filename, ".pdf"))
	assert.Equal(t, "Admission-Brochure.pdf", meta.OriginalName)
	assert.Equal(t, int64(len(data)), meta.FileSize)
	assert.Equal(t, MimeTypePDF, meta.MimeType)
	assert.Empty(t, meta.Thumbnail)

	got, err := os.ReadFile(filepath.Join(root, "documents", meta.Filename))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSave_ImageCreatesThumbnail(t *testing.T) {
	s, root := newLocalStore(t, 4<<20)

	meta, err := s.Save(context.Background(), "images", bytesUpload("lab.png", "", pngBytes(t, 960, 720)))
	require.NoError(t, err)
	require.NotEmpty(t, meta.Thumbnail)
	assert.True(t, meta.IsImage())

	f, err := os.Open(filepath.Join(root, "images", meta.Thumbnail))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.LessOrEqual(t, cfg.Width, ThumbWidth)
	assert.LessOrEqual(t, cfg.Height, ThumbHeight)
}

func TestSave_Rejections(t *testing.T) {
	s, _ := newLocalStore(t, 16)
	ctx := context.Background()

	_, err := s.Save(ctx, "documents", bytesUpload("big.pdf", "application/pdf", bytes.Repeat([]byte("a"), 17)))
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Save(ctx, "documents", bytesUpload("notes.txt", "text/plain", []byte("hello")))
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.Save(ctx, "documents", bytesUpload("empty.pdf", "application/pdf", nil))
	require.ErrorIs(t, err, ErrEmpty)

	_, err = s.Save(ctx, "../etc", bytesUpload("x.pdf", "application/pdf", []byte("%PDF")))
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestSaveAll_RollsBackOnFailure(t *testing.T) {
	s, root := newLocalStore(t, 1<<20)
	ups := []Upload{
		bytesUpload("a.pdf", "application/pdf", []byte("%PDF-1.4 a")),
		bytesUpload("b.exe", "application/x-msdownload", []byte("MZ")),
	}
	_, err := s.SaveAll(context.Background(), "documents", ups)
	require.ErrorIs(t, err, ErrUnsupportedType)

	entries, err := os.ReadDir(filepath.Join(root, "documents"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDelete_RemovesFileAndThumbnail(t *testing.T) {
	s, root := newLocalStore(t, 4<<20)
	ctx := context.Background()
	meta, err := s.Save(ctx, "faculty", bytesUpload("dean.png", "image/png", pngBytes(t, 600, 600)))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, *meta))
	_, err = os.Stat(filepath.Join(root, "faculty", meta.Filename))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "faculty", meta.Thumbnail))
	assert.True(t, os.IsNotExist(err))

	// deleting again is not an error
	require.NoError(t, s.Delete(ctx, *meta))
}

func TestOpen_InvalidPath(t *testing.T) {
	s, _ := newLocalStore(t, 0)
	_, _, err := s.Open(context.Background(), "documents", "../secret")
	require.ErrorIs(t, err, ErrInvalidPath)
	_, _, err = s.Open(context.Background(), "documents", "missing.pdf")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterRoutes_ServesPublicDirsOnly(t *testing.T) {
	s, _ := newLocalStore(t, 1<<20)
	ctx := context.Background()
	doc, err := s.Save(ctx, "documents", bytesUpload("fees.pdf", "application/pdf", []byte("%PDF-1.4 fees")))
	require.NoError(t, err)
	private, err := s.Save(ctx, "applications", bytesUpload("marks.pdf", "application/pdf", []byte("%PDF-1.4 marks")))
	require.NoError(t, err)

	g := gin.New()
	RegisterRoutes(g, s)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/documents/"+doc.Filename, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, MimeTypePDF, w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 fees", w.Body.String())

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/applications/"+private.Filename, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/images/nope.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetectType(t *testing.T) {
	mt, err := detectType("x.bin", "application/pdf; charset=binary", []byte("%PDF-1.4\n"))
	require.NoError(t, err)
	assert.Equal(t, MimeTypePDF, mt)

	mt, err = detectType("photo.JPEG", "application/octet-stream", []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10})
	require.NoError(t, err)
	assert.Equal(t, MimeTypeJPEG, mt)

	mt, err = detectType("upload", "", []byte("%PDF-1.7\n"))
	require.NoError(t, err)
	assert.Equal(t, MimeTypePDF, mt)

	// a word container only counts as .doc when claimed as one
	ole := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 64)...)
	mt, err = detectType("syllabus.doc", "", ole)
	require.NoError(t, err)
	assert.Equal(t, MimeTypeDOC, mt)
	_, err = detectType("syllabus.bin", "", ole)
	require.ErrorIs(t, err, ErrUnsupportedType)

	assert.Equal(t, ".jpg", extensionFor("photo.png", MimeTypeJPEG))
	assert.Equal(t, ".jpeg", extensionFor("photo.jpeg", MimeTypeJPEG))
}

func TestDetectType_ContentMustMatchClaim(t *testing.T) {
	html := []byte("<html><body><script>alert(1)</script></body></html>")

	_, err := detectType("evil.html", "application/pdf", html)
	require.ErrorIs(t, err, ErrUnsupportedType)
	_, err = detectType("evil.pdf", "", html)
	require.ErrorIs(t, err, ErrUnsupportedType)

	// a PDF body declared as an image is rejected as well
	_, err = detectType("cover.png", "image/png", []byte("%PDF-1.4\n"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSave_RejectsDisguisedHTML(t *testing.T) {
	s, root := newLocalStore(t, 1<<20)
	html := []byte("<html><script>document.cookie</script></html>")

	_, err := s.Save(context.Background(), "documents", bytesUpload("evil.html", "application/pdf", html))
	require.ErrorIs(t, err, ErrUnsupportedType)

	entries, err := os.ReadDir(filepath.Join(root, "documents"))
	if err == nil {
		assert.Empty(t, entries)
	}
}
