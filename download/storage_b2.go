package download

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	blazer "github.com/Backblaze/blazer/b2"
	"github.com/xoxhunterxd/instagram-downloader/tr"
)

var _ Storage = (*B2Storage)(nil)

// B2Storage uploads zips to a Backblaze B2 bucket. Configured as
// b2://keyID:applicationKey@bucketName.
type B2Storage struct {
	bucket *blazer.Bucket
}

func NewB2Storage(ctx context.Context, config *url.URL) (*B2Storage, error) {
	keyID := config.User.Username()
	appKey, _ := config.User.Password()
	bucketName := config.Hostname()

	client, err := blazer.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, fmt.Errorf("creating blazer/b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("getting b2 bucket: %w", err)
	}

	return &B2Storage{bucket: bucket}, nil
}

func (b2 *B2Storage) String() string {
	return fmt.Sprintf("b2 %q bucket", b2.bucket.Name())
}

func (b2 *B2Storage) Close() error {
	return nil
}

func (b2 *B2Storage) Upload(ctx context.Context, key string, artifact *Artifact) (_ ObjectRef, err error) {
	ctx, span := tracer.Start(ctx, "b2_upload")
	defer tr.End(span, &err)

	if err := validateObjectKey(key); err != nil {
		return ObjectRef{}, err
	}

	obj := b2.bucket.Object(key)
	uploadAttrs := blazer.Attrs{ContentType: artifact.ContentType}

	writer := obj.NewWriter(ctx, blazer.WithAttrsOption(&uploadAttrs))
	writer.ChunkSize = MaxMediaSize + 1
	writer.UseFileBuffer = false

	reader := bytes.NewReader(artifact.Content)
	if _, err := writer.ReadFrom(reader); err != nil {
		writer.Close()
		return ObjectRef{}, Wrapf(KindStorageUnavailable, err, "copying file to b2")
	}

	if err := writer.Close(); err != nil {
		return ObjectRef{}, Wrapf(KindStorageUnavailable, err, "closing b2 file")
	}

	return ObjectRef{Bucket: b2.bucket.Name(), Key: key}, nil
}

func (b2 *B2Storage) SignedURL(ctx context.Context, ref ObjectRef, ttl time.Duration) (_ string, _ time.Duration, err error) {
	ctx, span := tracer.Start(ctx, "b2_signed_url")
	defer tr.End(span, &err)

	token, err := b2.bucket.AuthToken(ctx, ref.Key, ttl)
	if err != nil {
		return "", 0, Wrapf(KindStorageUnavailable, err, "getting b2 auth token")
	}

	link := fmt.Sprintf("%s/file/%s/%s?Authorization=%s", b2.bucket.BaseURL(), ref.Bucket, ref.Key, token)
	return link, ttl, nil
}
