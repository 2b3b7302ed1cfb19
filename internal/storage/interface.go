package storage

import (
	"context"
	"io"
)

// ImageUploader stores user and editor supplied images.
// This interface allows for easy mocking in tests
type ImageUploader interface {
	UploadImage(ctx context.Context, r io.Reader, filename, prefix string) (*UploadResult, error)
	DeleteFile(ctx context.Context, key string) error
}

// Ensure S3Uploader implements ImageUploader
var _ ImageUploader = (*S3Uploader)(nil)
