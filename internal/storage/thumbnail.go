package storage

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP decoder
)

// Thumbnail bounds used for gallery and listing cards.
const (
	ThumbWidth  = 480
	ThumbHeight = 360
)

// makeThumbnail fits the image within the thumbnail bounds, honouring EXIF
// orientation. PNG and GIF sources produce PNG thumbnails, everything else JPEG.
func makeThumbnail(data []byte, mimeType string) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	thumb := imaging.Fit(img, ThumbWidth, ThumbHeight, imaging.Lanczos)

	format, ext := imaging.JPEG, ".jpg"
	if mimeType == MimeTypePNG || mimeType == MimeTypeGIF {
		format, ext = imaging.PNG, ".png"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), ext, nil
}
