package download

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xoxhunterxd/instagram-downloader/tr"
)

// R2Config is the R2_* environment block. Link delivery needs the first
// four values; the service still boots without them and serves direct
// downloads only.
type R2Config struct {
	Endpoint        string `env:"ENDPOINT"`
	Bucket          string `env:"BUCKET"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	PublicBase      string `env:"PUBLIC_BASE"`
	SignedURLTTL    int    `env:"SIGNED_URL_TTL" envDefault:"3600"`
}

func (c R2Config) Complete() bool {
	return len(c.Missing()) == 0
}

// Missing returns the names of required variables that are not set, for
// startup logging.
func (c R2Config) Missing() []string {
	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "R2_ENDPOINT")
	}
	if c.Bucket == "" {
		missing = append(missing, "R2_BUCKET")
	}
	if c.AccessKeyID == "" {
		missing = append(missing, "R2_ACCESS_KEY_ID")
	}
	if c.SecretAccessKey == "" {
		missing = append(missing, "R2_SECRET_ACCESS_KEY")
	}
	return missing
}

func (c R2Config) TTL() time.Duration {
	if c.SignedURLTTL <= 0 {
		return 3600 * time.Second
	}
	return time.Duration(c.SignedURLTTL) * time.Second
}

var _ Storage = (*R2Storage)(nil)

// R2Storage uploads zips to a Cloudflare R2 bucket over the S3 api and
// hands out presigned links, or stable public ones when a public base url
// is configured.
type R2Storage struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucket     string
	publicBase string
}

func NewR2Storage(ctx context.Context, cfg R2Config) (*R2Storage, error) {
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("incomplete r2 config, missing %v", missing)
	}

	// r2 ignores the region but the sdk wants one
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		awsconfig.WithRetryMaxAttempts(3),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &R2Storage{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBase,
	}, nil
}

func (r *R2Storage) String() string {
	return fmt.Sprintf("r2 %q bucket", r.bucket)
}

func (r *R2Storage) Close() error {
	return nil
}

func (r *R2Storage) Upload(ctx context.Context, key string, artifact *Artifact) (_ ObjectRef, err error) {
	ctx, span := tracer.Start(ctx, "r2_upload")
	defer tr.End(span, &err)

	if err := validateObjectKey(key); err != nil {
		return ObjectRef{}, err
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(artifact.Content),
		ContentType:   aws.String(artifact.ContentType),
		ContentLength: aws.Int64(int64(len(artifact.Content))),
	})
	if err != nil {
		return ObjectRef{}, Wrapf(KindStorageUnavailable, err, "uploading to r2")
	}

	return ObjectRef{Bucket: r.bucket, Key: key}, nil
}

func (r *R2Storage) SignedURL(ctx context.Context, ref ObjectRef, ttl time.Duration) (_ string, _ time.Duration, err error) {
	ctx, span := tracer.Start(ctx, "r2_signed_url")
	defer tr.End(span, &err)

	// a public base means the bucket is exposed through a stable url, no
	// signing and no expiry
	if r.publicBase != "" {
		return urlCat(r.publicBase, ref.Key), 0, nil
	}

	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", 0, Wrapf(KindStorageUnavailable, err, "presigning r2 url")
	}

	return req.URL, ttl, nil
}
