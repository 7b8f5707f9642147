// Package storage uploads user media to an S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/vidhub/account-service/internal/core/ports"
)

const (
	defaultRegion = "us-east-1"
	keyPrefix     = "media"
)

var (
	ErrNoFile      = errors.New("storage: no file provided")
	ErrNotAnImage  = errors.New("storage: file is not an image")
	ErrMissingConf = errors.New("storage: endpoint, bucket and credentials are required")
)

// Config describes the object store the uploader writes to.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL is the base used to build returned links. Defaults to Endpoint.
	PublicURL string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader implements ports.MediaUploader.
type S3Uploader struct {
	api       objectPutter
	bucket    string
	publicURL string
	newKey    func() string
}

var _ ports.MediaUploader = (*S3Uploader)(nil)

// NewS3Uploader builds an uploader using static credentials and path-style
// addressing, which works against MinIO and SeaweedFS as well as AWS.
func NewS3Uploader(ctx context.Context, cfg Config) (*S3Uploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, ErrMissingConf
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	endpoint := cfg.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(endpoint)
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = endpoint
	}
	return newUploader(client, cfg.Bucket, publicURL), nil
}

func newUploader(api objectPutter, bucket, publicURL string) *S3Uploader {
	return &S3Uploader{
		api:       api,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		newKey:    uuid.NewString,
	}
}

// Upload stores the file under a random key and returns its public URL.
// Only image content is accepted.
func (u *S3Uploader) Upload(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", ErrNoFile
	}

	f, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("storage: open upload: %w", err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("storage: detect content type: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotAnImage, mt.String())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("storage: rewind upload: %w", err)
	}

	key := path.Join(keyPrefix, u.newKey()+mt.Extension())
	_, err = u.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(file.Size),
		ContentType:   aws.String(mt.String()),
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object %s: %w", key, err)
	}

	link, err := url.JoinPath(u.publicURL, u.bucket, key)
	if err != nil {
		return "", fmt.Errorf("storage: build url: %w", err)
	}
	return link, nil
}
