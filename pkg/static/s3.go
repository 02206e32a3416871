package static

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures an S3-compatible static root.
type S3Config struct {
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Region    string `yaml:"region" env:"REGION"`

	// Endpoint is set for MinIO and other S3-compatible services.
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`

	// Prefix is prepended to every object key, without a trailing slash.
	Prefix string `yaml:"prefix" env:"PREFIX"`

	PathStyle bool  `yaml:"path_style" env:"PATH_STYLE"`
	MaxSize   int64 `yaml:"max_size" env:"MAX_SIZE"`
}

func (c *S3Config) applyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.MaxSize <= 0 {
		c.MaxSize = defaultMaxSize
	}
	c.Prefix = strings.Trim(c.Prefix, "/")
}

func (c *S3Config) validate() error {
	switch {
	case c.Bucket == "":
		return fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	case c.AccessKey == "" || c.SecretKey == "":
		return fmt.Errorf("%w: access key and secret key are required", ErrInvalidConfig)
	}
	return nil
}

// objectGetter is the subset of the S3 client used by S3.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 serves static files from an S3 bucket.
type S3 struct {
	client objectGetter
	cfg    S3Config
}

// NewS3 creates an S3-backed resolver.
func NewS3(cfg S3Config) (*S3, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return &S3{client: s3.New(s3.Options{}, opts...), cfg: cfg}, nil
}

// Resolve fetches the object for urlPath. The stored Content-Type wins
// over the extension-derived type.
func (s *S3) Resolve(ctx context.Context, urlPath string) ([]byte, string, error) {
	name, err := cleanPath(urlPath)
	if err != nil {
		return nil, "", err
	}

	key := name
	if s.cfg.Prefix != "" {
		key = s.cfg.Prefix + "/" + name
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", wrapS3Error(err)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && *out.ContentLength > s.cfg.MaxSize {
		return nil, "", fmt.Errorf("%w: %s", ErrTooLarge, urlPath)
	}

	data, err := io.ReadAll(io.LimitReader(out.Body, s.cfg.MaxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if int64(len(data)) > s.cfg.MaxSize {
		return nil, "", fmt.Errorf("%w: %s", ErrTooLarge, urlPath)
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" || contentType == MIMEOctetStream {
		contentType = MIMEType(name)
	}
	return data, contentType, nil
}

var _ Resolver = (*S3)(nil)
