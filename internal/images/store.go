// Package images stores board background images in a MinIO bucket and
// serves them through public read URLs.
package images

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Store struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

const maxBackgroundSize = 8 << 20

// New connects to MinIO and makes sure the bucket exists with a public-read
// policy so background URLs can be embedded directly.
func New(endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}

	s := &Store{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
	if err := s.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}

	policy := `{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": "*",
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::` + s.bucket + `/*"]
			}
		]
	}`
	if err := s.client.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		log.Printf("images: set bucket policy on %s: %v", s.bucket, err)
	}
	return nil
}

// PutBackground uploads a board's background image and returns its public
// URL. One object per board, so re-uploading replaces the old image.
func (s *Store) PutBackground(ctx context.Context, boardID string, reader io.Reader, size int64, contentType string) (string, error) {
	if size > maxBackgroundSize {
		return "", fmt.Errorf("background image exceeds %d bytes", maxBackgroundSize)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	objectName := "backgrounds/" + boardID + extensionFor(contentType)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload background for %s: %w", boardID, err)
	}
	return s.publicURL + "/" + objectName, nil
}

// DeleteBackground removes a board's background objects. Missing objects are
// not an error.
func (s *Store) DeleteBackground(ctx context.Context, boardID string) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix: "backgrounds/" + boardID,
	})
	for object := range objects {
		if object.Err != nil {
			return object.Err
		}
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove %s: %w", object.Key, err)
		}
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
