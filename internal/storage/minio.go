package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/rs/xid"

	"github.com/sakif/photolog/internal/model"
)

const thumbSuffix = "-thumb"

// Internal adapter interface to enable faking without a real MinIO server.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

var _ Uploader = (*MinioUploader)(nil)

// MinioUploader stores assets in a MinIO (or any S3-compatible) bucket.
//
// Keys are "<folder>/<xid>" for the original and "<folder>/<xid>-thumb" for
// the JPEG thumbnail. xid keys sort by creation time, which keeps bucket
// listings in upload order.
type MinioUploader struct {
	api     minioAPI
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// NewMinioUploader creates an uploader using a real *minio.Client.
// *minio.Client satisfies minioAPI directly.
func NewMinioUploader(ctx context.Context, client *minio.Client, bucket, baseURL string, logger *slog.Logger) (*MinioUploader, error) {
	return NewMinioUploaderWithAPI(ctx, client, bucket, baseURL, logger)
}

// NewMinioUploaderWithAPI allows injecting a fake API (used in tests).
func NewMinioUploaderWithAPI(ctx context.Context, api minioAPI, bucket, baseURL string, logger *slog.Logger) (*MinioUploader, error) {
	u := &MinioUploader{
		api:     api,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}

	if err := u.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("storage: ensuring bucket exists: %w", err)
	}
	return u, nil
}

func (u *MinioUploader) ensureBucketExists(ctx context.Context) error {
	exists, err := u.api.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := u.api.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket: %w", err)
	}
	u.logger.Info("created storage bucket", slog.String("bucket", u.bucket))
	return nil
}

// Upload stores data under folder and, when the bytes decode as an image, a
// thumbnail next to it. A failed thumbnail never fails the upload; the
// original URL is used in its place.
func (u *MinioUploader) Upload(ctx context.Context, folder string, data []byte, contentType string) (model.Asset, error) {
	key := folder + "/" + xid.New().String()

	if err := u.put(ctx, key, data, contentType); err != nil {
		return model.Asset{}, fmt.Errorf("storage: uploading %s: %w", key, err)
	}

	asset := model.Asset{
		URL:          u.objectURL(key),
		PublicID:     key,
		Size:         int64(len(data)),
		ThumbnailURL: u.objectURL(key),
	}

	thumb, err := Thumbnail(data)
	if err != nil {
		u.logger.Debug("no thumbnail generated",
			slog.String("key", key),
			slog.String("reason", err.Error()),
		)
		return asset, nil
	}
	if err := u.put(ctx, key+thumbSuffix, thumb, "image/jpeg"); err != nil {
		u.logger.Warn("thumbnail upload failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return asset, nil
	}
	asset.ThumbnailURL = u.objectURL(key + thumbSuffix)
	return asset, nil
}

// Delete removes the original and its thumbnail. Removing a key that does
// not exist is not an error on S3-compatible stores.
func (u *MinioUploader) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return fmt.Errorf("storage: empty public id")
	}
	if err := u.api.RemoveObject(ctx, u.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: deleting %s: %w", publicID, err)
	}
	if err := u.api.RemoveObject(ctx, u.bucket, publicID+thumbSuffix, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: deleting thumbnail of %s: %w", publicID, err)
	}
	return nil
}

func (u *MinioUploader) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := u.api.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	return err
}

func (u *MinioUploader) objectURL(key string) string {
	return u.baseURL + "/" + u.bucket + "/" + key
}
