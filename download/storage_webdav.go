package download

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/xoxhunterxd/instagram-downloader/tr"
)

var _ Storage = (*WebDAVStorage)(nil)

// WebDAVStorage PUTs zips into an rclone serve webdav endpoint, which
// creates intermediate directories on its own. Configured as
// rclone+webdav://host:port/path?base=https://public.example, links come
// from the public base and never expire.
type WebDAVStorage struct {
	baseURL string
	public  string
}

func NewWebDAVStorage(ctx context.Context, config *url.URL) (*WebDAVStorage, error) {
	query := config.Query()

	public := query.Get("base")
	if public == "" {
		return nil, fmt.Errorf("rclone+webdav storage needs a base= query param to build links")
	}

	base := *config
	base.Scheme = "http"
	base.RawQuery = ""

	return &WebDAVStorage{
		baseURL: base.String(),
		public:  public,
	}, nil
}

func (w *WebDAVStorage) String() string {
	return fmt.Sprintf("rclone+webdav: %q", w.baseURL)
}

func (w *WebDAVStorage) Close() error {
	return nil
}

func (w *WebDAVStorage) Upload(ctx context.Context, key string, artifact *Artifact) (_ ObjectRef, err error) {
	ctx, span := tracer.Start(ctx, "rclone+webdav_upload")
	defer tr.End(span, &err)

	if err := validateObjectKey(key); err != nil {
		return ObjectRef{}, err
	}

	fileURL := urlCat(w.baseURL, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fileURL, bytes.NewReader(artifact.Content))
	if err != nil {
		return ObjectRef{}, Wrapf(KindStorageUnavailable, err, "creating upload request")
	}
	req.ContentLength = int64(len(artifact.Content))
	req.Header.Set("Content-Type", artifact.ContentType)

	resp, err := httpClient.Do(req)
	if err != nil {
		return ObjectRef{}, Wrapf(KindStorageUnavailable, err, "uploading file to rclone+webdav")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ObjectRef{}, Errf(KindStorageUnavailable, "unexpected status uploading to rclone+webdav: %s", resp.Status)
	}

	return ObjectRef{Bucket: w.baseURL, Key: key}, nil
}

func (w *WebDAVStorage) SignedURL(ctx context.Context, ref ObjectRef, ttl time.Duration) (string, time.Duration, error) {
	return urlCat(w.public, ref.Key), 0, nil
}
