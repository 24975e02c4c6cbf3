package models

// FileMeta describes an uploaded file attached to a record. URL fields are
// derived from the configured host on read and are never persisted.
type FileMeta struct {
	Filename     string `bson:"filename" json:"filename"`
	OriginalName string `bson:"originalName" json:"originalName"`
	FileSize     int64  `bson:"fileSize" json:"fileSize"`
	MimeType     string `bson:"mimeType,omitempty" json:"mimeType,omitempty"`
	Dir          string `bson:"dir" json:"dir"`
	Thumbnail    string `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	URL          string `bson:"-" json:"url,omitempty"`
	ThumbnailURL string `bson:"-" json:"thumbnailUrl,omitempty"`
}

// IsImage reports whether the stored MIME type is an image type.
func (f FileMeta) IsImage() bool {
	return len(f.MimeType) > 6 && f.MimeType[:6] == "image/"
}
