package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CONTENT TYPE TESTS
// =============================================================================

func TestGetContentTypeForImage(t *testing.T) {
	tests := []struct {
		extension string
		expected  string
	}{
		{".jpg", "image/jpeg"},
		{".JPG", "image/jpeg"},
		{".jpeg", "image/jpeg"},
		{".JPEG", "image/jpeg"},
		{".png", "image/png"},
		{".PNG", "image/png"},
		{".gif", "image/gif"},
		{".GIF", "image/gif"},
		{".webp", "image/webp"},
		{".WEBP", "image/webp"},
		{".unknown", "application/octet-stream"},
		{"", "application/octet-stream"},
		{".bmp", "application/octet-stream"}, // Not supported
		{".svg", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.extension, func(t *testing.T) {
			result := getContentTypeForImage(tt.extension)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// =============================================================================
// UPLOAD TESTS
// =============================================================================

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	bodies  [][]byte
	deletes []string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, *in.Key)
	return &s3.DeleteObjectOutput{}, f.err
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.err
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func testUploader(client s3API, maxBytes int64) *S3Uploader {
	u := newS3Uploader(client, "us-east-1", "bucket", "https://cdn.example.com/", maxBytes)
	u.now = func() time.Time { return time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC) }
	return u
}

func TestUploadImageKeyAndURL(t *testing.T) {
	fake := &fakeS3{}
	u := testUploader(fake, 0)

	res, err := u.UploadImage(context.Background(), bytes.NewReader(pngHeader), "Cover.PNG", "")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^images/2026/02/[0-9a-f-]{36}\.png$`), res.Key)
	assert.Equal(t, "https://cdn.example.com/"+res.Key, res.URL)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, int64(len(pngHeader)), res.Size)

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "image/png", *fake.puts[0].ContentType)
	assert.Equal(t, pngHeader, fake.bodies[0])

	key, ok := u.KeyFromURL(res.URL)
	assert.True(t, ok)
	assert.Equal(t, res.Key, key)
}

func TestUploadImageJPEGExtension(t *testing.T) {
	u := testUploader(&fakeS3{}, 0)
	jpeg := []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00")

	res, err := u.UploadImage(context.Background(), bytes.NewReader(jpeg), "photo.jpeg", PrefixAvatars)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Key, "avatars/2026/02/"))
	assert.True(t, strings.HasSuffix(res.Key, ".jpg"))
}

func TestUploadImageRejects(t *testing.T) {
	u := testUploader(&fakeS3{}, 16)
	ctx := context.Background()

	_, err := u.UploadImage(ctx, bytes.NewReader(pngHeader), "x.bmp", "")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = u.UploadImage(ctx, strings.NewReader("plain text pretending"), "x.png", "")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = u.UploadImage(ctx, strings.NewReader("hello"), "x.png", "")
	assert.ErrorIs(t, err, ErrUnsupportedType, "content must match the extension")

	_, err = u.UploadImage(ctx, bytes.NewReader(nil), "x.png", "")
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestUploadImageS3Failure(t *testing.T) {
	u := testUploader(&fakeS3{err: errors.New("denied")}, 0)
	_, err := u.UploadImage(context.Background(), bytes.NewReader(pngHeader), "x.png", "")
	assert.ErrorContains(t, err, "failed to upload to S3")
}

func TestDeleteFileAndBucketAccess(t *testing.T) {
	fake := &fakeS3{}
	u := testUploader(fake, 0)
	require.NoError(t, u.DeleteFile(context.Background(), "images/a.png"))
	assert.Equal(t, []string{"images/a.png"}, fake.deletes)
	assert.NoError(t, u.CheckBucketAccess(context.Background()))

	_, ok := u.KeyFromURL("https://elsewhere.com/images/a.png")
	assert.False(t, ok)
}

func TestMockUploader(t *testing.T) {
	m := NewMockUploader()
	res, err := m.UploadImage(context.Background(), bytes.NewReader(pngHeader), "a.png", "")
	require.NoError(t, err)
	assert.Contains(t, m.Uploads, res.Key)
	require.NoError(t, m.DeleteFile(context.Background(), res.Key))
	assert.Empty(t, m.Uploads)
}
