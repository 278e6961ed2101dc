package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/starford/folio/internal/apperr"
)

// S3Options configure the object storage driver.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicBaseURL prefixes object keys to form the references stored in
	// the catalog. Defaults to <scheme>://<endpoint>/<bucket>.
	PublicBaseURL string
}

// S3 stores uploads in an S3-compatible bucket through minio-go.
type S3 struct {
	client  *minio.Client
	bucket  string
	region  string
	baseURL string
}

// NewS3 creates a MinIO client from opts.
func NewS3(opts S3Options) (*S3, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: init minio: %w", err)
	}
	base := strings.TrimRight(opts.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.Bucket)
	}
	return &S3{client: client, bucket: opts.Bucket, region: opts.Region, baseURL: base}, nil
}

func (s *S3) Name() string { return "s3" }

// EnsureBucket makes sure the bucket exists before use.
func (s *S3) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("blob: check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("blob: make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Put uploads the object and returns its public URL.
func (s *S3) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, name, r, size, opts); err != nil {
		return "", fmt.Errorf("blob: upload object: %w", err)
	}
	return s.URL(name), nil
}

// Delete removes the object behind ref, which may be a public URL or a bare
// key. Missing objects and URLs outside this bucket are not found.
func (s *S3) Delete(ctx context.Context, ref string) error {
	key, ok := s.Key(ref)
	if !ok {
		return fmt.Errorf("blob: %s is not in bucket %s: %w", ref, s.bucket, apperr.ErrNotFound)
	}
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("blob: stat %s: %w", key, apperr.ErrNotFound)
		}
		return fmt.Errorf("blob: stat %s: %w", key, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("blob: remove %s: %w", key, err)
	}
	return nil
}

// URL returns the public address of key.
func (s *S3) URL(key string) string {
	return s.baseURL + "/" + url.PathEscape(key)
}

// Ref returns the public URL for references that name an object in the
// bucket.
func (s *S3) Ref(ref string) string {
	if key, ok := s.Key(ref); ok {
		return s.URL(key)
	}
	return ref
}

// Key extracts the object key from a catalog reference.
func (s *S3) Key(ref string) (string, bool) {
	if rest, ok := strings.CutPrefix(ref, s.baseURL+"/"); ok {
		key, err := url.PathUnescape(rest)
		if err != nil || key == "" {
			return "", false
		}
		return key, true
	}
	if ref == "" || strings.Contains(ref, "://") {
		return "", false
	}
	return ref, true
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
