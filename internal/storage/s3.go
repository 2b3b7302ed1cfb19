package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Key prefixes
const (
	PrefixImages  = "images"
	PrefixAvatars = "avatars"
)

// DefaultMaxImageBytes is the upload limit when none is configured
const DefaultMaxImageBytes = 5 << 20

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
	ErrEmptyFile       = errors.New("empty file")
)

// s3API is the subset of the S3 client the uploader calls
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Uploader handles image uploads to AWS S3
type S3Uploader struct {
	client   s3API
	bucket   string
	region   string
	baseURL  string
	maxBytes int64
	now      func() time.Time
}

// UploadResult contains the result of an S3 upload
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Bucket      string `json:"bucket"`
	Region      string `json:"region"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// NewS3Uploader creates a new S3 uploader. baseURL is the CDN origin; when
// empty the bucket's virtual-hosted URL is used.
func NewS3Uploader(ctx context.Context, region, bucket, baseURL string, maxBytes int64) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithHTTPClient(&http.Client{Transport: telemetry.NewInstrumentedTransport()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return newS3Uploader(s3.NewFromConfig(cfg), region, bucket, baseURL, maxBytes), nil
}

func newS3Uploader(client s3API, region, bucket, baseURL string, maxBytes int64) *S3Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &S3Uploader{
		client:   client,
		bucket:   bucket,
		region:   region,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// UploadImage validates and stores an image under
// {prefix}/{yyyy}/{mm}/{uuid}.{ext}. The extension must be jpg, png, gif or
// webp and the bytes must sniff as an image of that kind.
func (u *S3Uploader) UploadImage(ctx context.Context, r io.Reader, filename, prefix string) (*UploadResult, error) {
	ext := normalizeExt(filepath.Ext(filename))
	contentType := getContentTypeForImage(ext)
	if contentType == "application/octet-stream" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(filename))
	}

	// read one byte past the limit to detect oversize bodies
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > u.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, u.maxBytes)
	}
	if sniffed := http.DetectContentType(data); sniffed != contentType {
		return nil, fmt.Errorf("%w: content is %s", ErrUnsupportedType, sniffed)
	}

	if prefix == "" {
		prefix = PrefixImages
	}
	now := u.now().UTC()
	key := objectKey(prefix, now, uuid.New().String(), ext)

	ctx, span := telemetry.TraceExternalCall(ctx, "s3", "PutObject", key)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),

		// images never change under a key
		CacheControl: aws.String("public, max-age=31536000, immutable"),

		Metadata: map[string]string{
			"original-filename": filepath.Base(filename),
			"upload-timestamp":  now.Format(time.RFC3339),
		},
	})
	telemetry.EndExternalCall(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	logger.Log.Info("Image uploaded", zap.String("key", key), zap.Int("bytes", len(data)))

	return &UploadResult{
		Key:         key,
		URL:         u.baseURL + "/" + key,
		Bucket:      u.bucket,
		Region:      u.region,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

// DeleteFile deletes a file from S3
func (u *S3Uploader) DeleteFile(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}

	return nil
}

// KeyFromURL recovers the object key from a URL this uploader returned
func (u *S3Uploader) KeyFromURL(url string) (string, bool) {
	prefix := u.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func objectKey(prefix string, at time.Time, id, ext string) string {
	return fmt.Sprintf("%s/%d/%02d/%s%s", prefix, at.Year(), at.Month(), id, ext)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext == ".jpeg" {
		return ".jpg"
	}
	return ext
}

// getContentTypeForImage returns the MIME type for supported image extensions
func getContentTypeForImage(extension string) string {
	switch strings.ToLower(extension) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
