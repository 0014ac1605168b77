package download

import (
	"context"
	"log/slog"
	"path"
	"time"

	"github.com/xoxhunterxd/instagram-downloader/tr"
	"go.opentelemetry.io/otel/attribute"
)

// Options bound the slow parts of a delivery. The zero value is not useful,
// main fills it from the environment.
type Options struct {
	ExtractTimeout time.Duration
	UploadTimeout  time.Duration
	SignedURLTTL   time.Duration
}

// Resolver ties a provider and an optional storage backend together into
// the two delivery flows. Storage may be nil, in which case link delivery
// fails with KindStorageUnconfigured and direct delivery is unaffected.
type Resolver struct {
	Provider Provider
	Storage  Storage
	Opts     Options
}

// Deliver runs one request end to end: normalize the url, pull the media,
// then either hand the artifact back or zip it, upload it and mint a link.
func (r *Resolver) Deliver(ctx context.Context, req Request) (_ *Result, err error) {
	ctx, span := tracer.Start(ctx, "deliver")
	defer tr.End(span, &err)

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			if kind, ok := KindOf(err); ok {
				downloadErrors.WithLabelValues(string(kind)).Inc()
			} else {
				downloadErrors.WithLabelValues("unknown").Inc()
			}
		}
		downloadsTotal.WithLabelValues(req.Mode.String(), outcome).Inc()
		downloadDuration.WithLabelValues(req.Mode.String()).Observe(time.Since(start).Seconds())
	}()

	mediaURL, err := NormalizeURL(req.URL)
	if err != nil {
		return nil, err
	}
	if !SupportedURL(mediaURL) {
		return nil, Errf(KindUnsupported, "url is not a downloadable instagram post")
	}
	mediaID := MediaID(mediaURL)

	span.SetAttributes(
		attribute.String("media_url", mediaURL),
		attribute.String("media_id", mediaID),
		attribute.String("mode", req.Mode.String()),
	)

	artifact, err := r.fetch(ctx, mediaURL)
	if err != nil {
		return nil, err
	}
	artifactBytes.Observe(float64(len(artifact.Content)))

	if req.Mode == ModeDirect {
		return &Result{Mode: ModeDirect, Artifact: artifact}, nil
	}

	link, err := r.deliverLink(ctx, mediaID, artifact)
	if err != nil {
		return nil, err
	}
	return &Result{Mode: ModeLink, Link: link}, nil
}

// fetch pulls the media within the extraction timeout, retrying once on a
// transient provider failure. Both attempts share the same deadline.
func (r *Resolver) fetch(ctx context.Context, mediaURL string) (_ *Artifact, err error) {
	ctx, span := tracer.Start(ctx, "fetch")
	defer tr.End(span, &err)

	if r.Opts.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Opts.ExtractTimeout)
		defer cancel()
	}

	artifact, err := r.Provider.Fetch(ctx, mediaURL)
	if err != nil && IsKind(err, KindProviderError) && ctx.Err() == nil {
		slog.Warn("provider failed, retrying once", "media_url", mediaURL, "error", err)
		artifact, err = r.Provider.Fetch(ctx, mediaURL)
	}
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

func (r *Resolver) deliverLink(ctx context.Context, mediaID string, artifact *Artifact) (_ *Link, err error) {
	ctx, span := tracer.Start(ctx, "deliver_link")
	defer tr.End(span, &err)

	if r.Storage == nil {
		return nil, Errf(KindStorageUnconfigured, "link delivery requires object storage; set the R2_* variables")
	}

	zipped, err := Package(artifact)
	if err != nil {
		return nil, Wrapf(KindProviderError, err, "zipping artifact")
	}

	key := objectKey(mediaID, zipped.Name)
	span.SetAttributes(attribute.String("object_key", key))

	if r.Opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Opts.UploadTimeout)
		defer cancel()
	}

	ref, err := r.Storage.Upload(ctx, key, zipped)
	if err != nil {
		return nil, err
	}

	link, validity, err := r.Storage.SignedURL(ctx, ref, r.Opts.SignedURLTTL)
	if err != nil {
		return nil, err
	}

	return &Link{
		URL:       link,
		Filename:  zipped.Name,
		ExpiresIn: int(validity.Seconds()),
	}, nil
}

// objectKey builds the deterministic storage key for a zipped artifact.
// Repeated requests for the same post land on the same object.
func objectKey(mediaID, filename string) string {
	return path.Join("instagram", mediaID, filename)
}
