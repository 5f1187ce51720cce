package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/saturnines/shiphero-core/pkg/config"
	"github.com/saturnines/shiphero-core/pkg/errors"
)

// Uploader copies exported files to an S3 compatible bucket.
type Uploader struct {
	client *minio.Client
	bucket string
	prefix string
	region string
	logger *slog.Logger
}

// NewUploader creates an Uploader from the object store section.
func NewUploader(cfg *config.ObjectStoreConfig, logger *slog.Logger) (*Uploader, error) {
	if cfg == nil {
		return nil, errors.WrapError(fmt.Errorf("object store is not configured"), errors.ErrConfiguration, "uploader")
	}

	endpoint, useSSL := cfg.Endpoint, cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "failed to create object store client")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, region: cfg.Region, logger: logger}, nil
}

// ObjectKey is the key a local file is stored under.
func (u *Uploader) ObjectKey(file string) string {
	return path.Join(u.prefix, filepath.Base(file))
}

// Upload creates the bucket if needed and uploads file. Returns the key.
func (u *Uploader) Upload(ctx context.Context, file string) (string, error) {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrTransport, "check bucket")
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region}); err != nil {
			return "", errors.WrapError(err, errors.ErrTransport, "create bucket")
		}
	}

	key := u.ObjectKey(file)
	info, err := u.client.FPutObject(ctx, u.bucket, key, file, minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return "", errors.WrapError(err, errors.ErrTransport, "upload "+key)
	}
	u.logger.Info("uploaded export", "bucket", u.bucket, "key", key, "bytes", info.Size)
	return key, nil
}
