// Package avatar re-hosts provider-reported profile images in object
// storage so the directory never serves third-party URLs that can expire
// or change behind the user's back.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/roosthq/identity/pkg/auth"
)

var (
	ErrInvalidConfig  = errors.New("avatar: bucket and region are required")
	ErrSourceRejected = errors.New("avatar: source image rejected")
	ErrBucketNotFound = errors.New("avatar: bucket not found")
	ErrAccessDenied   = errors.New("avatar: access denied")
)

// maxImageSize caps downloads so a hostile avatar URL cannot exhaust
// memory or storage.
const maxImageSize = 5 << 20

// S3Client is the subset of the S3 API the re-hoster uses. Narrowed for
// mocking in tests.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config contains the object storage settings.
type Config struct {
	Bucket      string `env:"AVATAR_S3_BUCKET,required"`
	Region      string `env:"AVATAR_S3_REGION,required"`
	AccessKeyID string `env:"AVATAR_S3_ACCESS_KEY_ID"`
	SecretKey   string `env:"AVATAR_S3_SECRET_KEY"`
	Endpoint    string `env:"AVATAR_S3_ENDPOINT"`       // optional, for S3-compatible services
	BaseURL     string `env:"AVATAR_S3_BASE_URL"`       // public URL base for stored avatars
	KeyPrefix   string `env:"AVATAR_S3_KEY_PREFIX" envDefault:"avatars"`
}

// S3Rehost downloads a source image over HTTP and stores a copy under a
// random key. Safe for concurrent use.
type S3Rehost struct {
	client     S3Client
	httpClient *http.Client
	bucket     string
	baseURL    string
	keyPrefix  string
}

// Option configures an S3Rehost.
type Option func(*options)

type options struct {
	s3Client   S3Client
	httpClient *http.Client
}

// WithS3Client sets a pre-configured S3 client. Useful for tests.
func WithS3Client(client S3Client) Option {
	return func(o *options) {
		o.s3Client = client
	}
}

// WithHTTPClient sets the client used to download source images.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// NewS3Rehost creates the re-hoster, building an AWS client from the
// config unless one is injected.
func NewS3Rehost(ctx context.Context, cfg Config, opts ...Option) (*S3Rehost, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.s3Client
	if client == nil {
		loadOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("avatar: load aws config: %w", err)
		}

		client = s3.NewFromConfig(awsCfg, func(s3opts *s3.Options) {
			if cfg.Endpoint != "" {
				s3opts.BaseEndpoint = aws.String(cfg.Endpoint)
				s3opts.UsePathStyle = true
			}
		})
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Rehost{
		client:     client,
		httpClient: orDefault(o.httpClient),
		bucket:     cfg.Bucket,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		keyPrefix:  strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

func orDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// Upload fetches the source image and stores a copy, returning the
// public URL of the stored object.
func (r *S3Rehost) Upload(ctx context.Context, sourceURL string) (string, error) {
	body, contentType, err := r.download(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	key := r.keyPrefix + "/" + uuid.NewString() + extensionFor(contentType)
	if _, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", mapStorageError(err)
	}

	return r.baseURL + "/" + key, nil
}

// mapStorageError translates S3 API failures into package sentinels so
// callers can tell misconfiguration from transient outages.
func mapStorageError(err error) error {
	var nsb *s3types.NoSuchBucket
	if errors.As(err, &nsb) {
		return ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return ErrBucketNotFound
		case "AccessDenied":
			return fmt.Errorf("%w: %s", ErrAccessDenied, apiErr.ErrorMessage())
		}
	}

	return fmt.Errorf("avatar: put object: %w", err)
}

func (r *S3Rehost) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrSourceRejected, sourceURL)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("avatar: fetch source: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: source returned status %d", ErrSourceRejected, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("%w: content type %q", ErrSourceRejected, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("avatar: read source: %w", err)
	}
	if len(body) > maxImageSize {
		return nil, "", fmt.Errorf("%w: image exceeds %d bytes", ErrSourceRejected, maxImageSize)
	}

	return body, contentType, nil
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

var _ auth.AvatarUploader = (*S3Rehost)(nil)
