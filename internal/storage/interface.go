package storage

import (
	"context"
	"io"
)

// MediaUploader stores post media. Handlers depend on this so tests can
// substitute an in-memory fake.
type MediaUploader interface {
	UploadMedia(ctx context.Context, body io.Reader, size int64, userID, filename, contentType string) (*UploadResult, error)
	DeleteFile(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

var _ MediaUploader = (*S3Uploader)(nil)
