package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const archivePrefix = "imports/"

// ArchiveService keeps the raw uploaded accounting files in object storage.
type ArchiveService interface {
	Store(ctx context.Context, tenantID, importID uuid.UUID, fileName string, reader io.Reader, size int64) (string, error)
	Fetch(ctx context.Context, objectKey string) (io.ReadCloser, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	EnsureBucketExists(ctx context.Context) error
	Ping(ctx context.Context) error
}

type minioArchive struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

func NewArchiveService(endpoint, accessKey, secretKey, bucket string, useSSL bool) (ArchiveService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioArchive{client: client, bucket: bucket, now: time.Now}, nil
}

// ArchiveObjectKey returns imports/<tenant>/<yyyy>/<mm>/<dd>/<import>-<file>.
func ArchiveObjectKey(tenantID, importID uuid.UUID, fileName string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, name)
	return fmt.Sprintf("%s%s/%s/%s-%s", archivePrefix, tenantID, at.UTC().Format("2006/01/02"), importID, name)
}

func (m *minioArchive) Store(ctx context.Context, tenantID, importID uuid.UUID, fileName string, reader io.Reader, size int64) (string, error) {
	key := ArchiveObjectKey(tenantID, importID, fileName, m.now())
	_, err := m.client.PutObject(ctx, m.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		UserMetadata: map[string]string{
			"tenant-id": tenantID.String(),
			"file-name": fileName,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", fileName, err)
	}
	return key, nil
}

func (m *minioArchive) Fetch(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", objectKey, err)
	}
	return obj, nil
}

// PurgeOlderThan removes archived uploads last modified before cutoff.
func (m *minioArchive) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: archivePrefix, Recursive: true}) {
		if obj.Err != nil {
			return removed, obj.Err
		}
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := m.client.RemoveObject(ctx, m.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", obj.Key, err)
		}
		removed++
	}
	return removed, nil
}

func (m *minioArchive) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *minioArchive) Ping(ctx context.Context) error {
	_, err := m.client.BucketExists(ctx, m.bucket)
	return err
}
