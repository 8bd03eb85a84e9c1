package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/oklog/ulid/v2"
)

// Config holds the object store connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Attachments stores uploaded files (portfolio samples, briefs, deliverables)
// in a MinIO bucket and hands out presigned download links.
type Attachments struct {
	client *minio.Client
	bucket string
}

// NewAttachments connects to MinIO and ensures the bucket exists.
func NewAttachments(cfg Config) (*Attachments, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	a := &Attachments{client: mc, bucket: cfg.Bucket}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		exists, xerr := mc.BucketExists(ctx, a.bucket)
		if xerr != nil || !exists {
			return nil, fmt.Errorf("ensure bucket %s: %w", a.bucket, err)
		}
	}
	return a, nil
}

// Upload stores the file under a fresh key scoped to the owner and returns it.
func (a *Attachments) Upload(ctx context.Context, ownerID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := ownerID + "/" + ulid.Make().String() + path.Ext(filename)
	_, err := a.client.PutObject(ctx, a.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// PresignedURL returns a time-limited GET link for a stored attachment.
func (a *Attachments) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, expires, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Delete removes a stored attachment. Missing keys are not an error.
func (a *Attachments) Delete(ctx context.Context, key string) error {
	return a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{})
}
