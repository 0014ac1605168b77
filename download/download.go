// Package download resolves Instagram URLs to media artifacts and decides
// how they reach the caller: streamed back directly, or zipped, uploaded to
// object storage and handed out as a time-limited link.
package download

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
)

const (
	megaByte     = 1024 * 1024
	MaxMediaSize = megaByte * 500
)

var (
	tracer = otel.Tracer("download")

	allowedMediaTypes = []string{"video/mp4", "image/jpeg", "image/png", "image/webp"}
	extensionByType   = map[string]string{
		"video/mp4":  ".mp4",
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
	}
)

func init() {
	mime.AddExtensionType(".mp4", "video/mp4")
	mime.AddExtensionType(".jpg", "image/jpeg")
	mime.AddExtensionType(".jpeg", "image/jpeg")
	mime.AddExtensionType(".png", "image/png")
	mime.AddExtensionType(".webp", "image/webp")
	mime.AddExtensionType(".zip", "application/zip")
}

// Mode is the delivery mode of a request. The zero value streams media
// straight back to the caller.
type Mode int

const (
	ModeDirect Mode = iota
	ModeLink
)

func (m Mode) String() string {
	if m == ModeLink {
		return "link"
	}
	return "direct"
}

// ParseMode maps the wire-level delivery parameter onto a Mode. Absent and
// "direct" mean direct streaming; anything other than "link" is rejected.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct":
		return ModeDirect, nil
	case "link":
		return ModeLink, nil
	default:
		return ModeDirect, Errf(KindBadRequest, "unknown delivery mode %q", s)
	}
}

// Request is one download request after HTTP-level parsing.
type Request struct {
	URL  string
	Mode Mode
}

// Artifact is the media retrieved for a single request: raw bytes plus the
// name and content type the response should carry.
type Artifact struct {
	Name        string
	ContentType string
	Content     []byte
}

// Link points at an uploaded copy of an artifact. ExpiresIn is the validity
// of the URL in seconds, 0 when the URL is a stable public one.
type Link struct {
	URL       string
	Filename  string
	ExpiresIn int
}

// Result is the outcome of a delivery: exactly one of Artifact or Link is
// set, matching Mode.
type Result struct {
	Mode     Mode
	Artifact *Artifact
	Link     *Link
}

// ObjectRef names an uploaded object inside a storage backend.
type ObjectRef struct {
	Bucket string
	Key    string
}

// Provider fetches the media behind an Instagram URL. Implementations make
// outbound calls and classify their failures with the error kinds of this
// package; callers bound them with a context deadline.
type Provider interface {
	Fetch(ctx context.Context, mediaURL string) (*Artifact, error)
}

// Storage holds zipped artifacts for link delivery.
type Storage interface {
	io.Closer
	fmt.Stringer
	Upload(ctx context.Context, key string, artifact *Artifact) (ObjectRef, error)
	SignedURL(ctx context.Context, ref ObjectRef, ttl time.Duration) (link string, validity time.Duration, err error)
}

func NewProvider(config *url.URL) (p Provider, err error) {
	switch config.Scheme {
	case "ytdlp":
		p, err = NewYtdlp(config)
	case "cobalt":
		p, err = NewCobalt(config)
	case "fastdl":
		p, err = NewFastDL(config)
	case "ssvid":
		p, err = NewSsvid(config)
	default:
		err = fmt.Errorf("unknown provider: %s", config.Scheme)
	}
	return p, err
}

func NewStorage(ctx context.Context, config *url.URL) (st Storage, err error) {
	switch config.Scheme {
	case "b2":
		st, err = NewB2Storage(ctx, config)
	case "fs":
		st, err = NewFSStorage(ctx, config)
	case "rclone+webdav":
		st, err = NewWebDAVStorage(ctx, config)
	default:
		err = fmt.Errorf("unknown storage: %s", config.Scheme)
	}
	return st, err
}
