package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ditechted/healthlink/internal/config"
)

// Uploader stores media objects and hands back a public URL + object id.
type Uploader interface {
	Upload(ctx context.Context, fileName, contentType string, r io.Reader, size int64) (url, publicID string, err error)
	Delete(ctx context.Context, publicID string) error
}

type MinioStorage struct {
	client *minio.Client
	cfg    config.Media
}

func NewMinio(cfg config.Media) (*MinioStorage, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioStorage{client: cli, cfg: cfg}, nil
}

// EnsureBucket creates the media bucket if it does not exist yet.
func (m *MinioStorage) EnsureBucket(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.cfg.Bucket)
	if err != nil {
		return err
	}
	if !ok {
		return m.client.MakeBucket(ctx, m.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *MinioStorage) Upload(ctx context.Context, fileName, contentType string, r io.Reader, size int64) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	now := time.Now().UTC()
	objectName := fmt.Sprintf("posts/%d/%02d/%s%s", now.Year(), now.Month(), uuid.NewString(), ext)

	_, err := m.client.PutObject(ctx, m.cfg.Bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"original-filename": fileName,
			"uploaded-at":       now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("minio upload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", strings.TrimRight(m.cfg.PublicURL, "/"), m.cfg.Bucket, objectName)
	return url, objectName, nil
}

func (m *MinioStorage) Delete(ctx context.Context, publicID string) error {
	if err := m.client.RemoveObject(ctx, m.cfg.Bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove: %w", err)
	}
	return nil
}
