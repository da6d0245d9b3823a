package minio

import (
	"context"
	"fmt"
	"io"

	"fraud-viewer/internal/config"
	"fraud-viewer/internal/repository/submission"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// ArchiveRepository stores archived submission artifacts in a single bucket.
type ArchiveRepository struct {
	client  *minio.Client
	bucket  string
	retries retry.Strategy
	logger  *zlog.Zerolog
}

func NewArchiveRepository(ctx context.Context, cfg *config.Config, retries retry.Strategy, logger *zlog.Zerolog) (*ArchiveRepository, error) {
	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
		Region: cfg.Minio.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	repo := &ArchiveRepository{
		client:  client,
		bucket:  cfg.Minio.Bucket,
		retries: retries,
		logger:  logger,
	}

	if err := repo.ensureBucket(ctx, cfg.Minio.Region); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *ArchiveRepository) ensureBucket(ctx context.Context, region string) error {
	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("%w: failed to check bucket %s: %v", submission.ErrStorageError, r.bucket, err)
	}

	if exists {
		return nil
	}

	if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("%w: failed to create bucket %s: %v", submission.ErrStorageError, r.bucket, err)
	}

	r.logger.Info().Str("bucket", r.bucket).Msg("Bucket created")
	return nil
}

// Put uploads data under path. The body is buffered by the caller, so retries can
// re-read it through the seeker.
func (r *ArchiveRepository) Put(ctx context.Context, path string, data io.ReadSeeker, size int64, contentType string) error {
	err := retry.Do(func() error {
		if _, err := data.Seek(0, io.SeekStart); err != nil {
			return err
		}
		_, err := r.client.PutObject(ctx, r.bucket, path, data, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
		return err
	}, r.retries)
	if err != nil {
		r.logger.Error().Err(err).Str("path", path).Msg("Failed to store object")
		return fmt.Errorf("%w: failed to put %s: %v", submission.ErrStorageError, path, err)
	}

	r.logger.Debug().Str("path", path).Int64("size", size).Msg("Object stored")
	return nil
}

func (r *ArchiveRepository) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if _, err := r.client.StatObject(ctx, r.bucket, path, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, submission.ErrObjectNotFound
		}
		return nil, fmt.Errorf("%w: failed to stat %s: %v", submission.ErrStorageError, path, err)
	}

	obj, err := r.client.GetObject(ctx, r.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get %s: %v", submission.ErrStorageError, path, err)
	}

	return obj, nil
}

func (r *ArchiveRepository) DeletePrefix(ctx context.Context, prefix string) error {
	objects := r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("%w: failed to list %s: %v", submission.ErrStorageError, prefix, obj.Err)
		}
		if err := r.client.RemoveObject(ctx, r.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("%w: failed to remove %s: %v", submission.ErrStorageError, obj.Key, err)
		}
	}

	return nil
}
