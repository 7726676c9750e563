package util

import (
	"path/filepath"
	"strings"

	"github.com/campuslink/backend/internal/models"
)

// MaxMediaSize is the largest accepted post upload.
const MaxMediaSize = 50 << 20

var mediaExtensions = map[string]string{
	".jpg":  models.MediaTypeImage,
	".jpeg": models.MediaTypeImage,
	".png":  models.MediaTypeImage,
	".gif":  models.MediaTypeImage,
	".webp": models.MediaTypeImage,
	".mp4":  models.MediaTypeVideo,
	".mov":  models.MediaTypeVideo,
	".webm": models.MediaTypeVideo,
}

// MediaTypeFor classifies an upload by content type, falling back to the
// file extension. ok is false for anything that is not an image or video.
func MediaTypeFor(filename, contentType string) (mediaType string, ok bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaTypeImage, true
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaTypeVideo, true
	}
	mediaType, ok = mediaExtensions[strings.ToLower(filepath.Ext(filename))]
	return mediaType, ok
}
