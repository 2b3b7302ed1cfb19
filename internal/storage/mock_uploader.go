package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
)

// MockUploader records uploads in memory for handler tests
type MockUploader struct {
	mu      sync.Mutex
	Uploads map[string][]byte
	Deleted []string
	// Err, when set, is returned by every call
	Err error
}

func NewMockUploader() *MockUploader {
	return &MockUploader{Uploads: make(map[string][]byte)}
}

func (m *MockUploader) UploadImage(ctx context.Context, r io.Reader, filename, prefix string) (*UploadResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = PrefixImages
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s/mock/%d%s", prefix, len(m.Uploads)+1, normalizeExt(filepath.Ext(filename)))
	m.Uploads[key] = data
	return &UploadResult{
		Key:         key,
		URL:         "https://cdn.test/" + key,
		Bucket:      "mock",
		Size:        int64(len(data)),
		ContentType: getContentTypeForImage(filepath.Ext(filename)),
	}, nil
}

func (m *MockUploader) DeleteFile(ctx context.Context, key string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Uploads, key)
	m.Deleted = append(m.Deleted, key)
	return nil
}

var _ ImageUploader = (*MockUploader)(nil)
