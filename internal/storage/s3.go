package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client abstracts the S3 API operations used by [S3Store].
// The [s3.Client] type satisfies this interface.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implements FileStore backed by Amazon S3 or any S3-compatible
// object store (MinIO, R2, etc.). The caller is responsible for configuring
// the [s3.Client] with credentials, region, and endpoint.
type S3Store struct {
	client    S3Client
	bucket    string
	prefix    string
	publicURL string
}

// NewS3 creates an S3-backed FileStore. Prefix is prepended to all object
// keys; pass "" for no prefix. publicURL is the base under which stored
// objects are reachable; when empty the virtual-hosted S3 URL is used.
func NewS3(client S3Client, bucket, prefix, region, publicURL string) *S3Store {
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Store{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *S3Store) key(folder, name string) string {
	if s.prefix == "" {
		return path.Join(folder, name)
	}
	return path.Join(s.prefix, folder, name)
}

func (s *S3Store) Upload(ctx context.Context, data []byte, name, mimeType, folder string) (Object, error) {
	key := s.key(folder, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("storage: upload %s: %w", key, err)
	}
	return Object{
		Key:  key,
		URL:  s.publicURL + "/" + key,
		Size: int64(len(data)),
	}, nil
}

func (s *S3Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("storage: fetch %s: %w", key, os.ErrNotExist)
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Delete removes the named object. S3 DeleteObject is already idempotent
// (returns success for missing keys).
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// isS3NotFound reports whether err indicates the S3 object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// Compile-time interface check.
var _ FileStore = (*S3Store)(nil)
