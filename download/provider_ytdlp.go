package download

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xoxhunterxd/instagram-downloader/tr"
	"go.opentelemetry.io/otel/attribute"
)

var _ Provider = (*YtdlpProvider)(nil)

// YtdlpProvider shells out to yt-dlp for metadata and resolves the direct
// media url itself. Configured as ytdlp: or ytdlp:/path/to/yt-dlp with an
// optional cookies=FILE query param.
type YtdlpProvider struct {
	path        string
	cookiesFile string
}

func NewYtdlp(config *url.URL) (*YtdlpProvider, error) {
	binary := config.Opaque
	if binary == "" {
		binary = config.Path
	}
	if binary == "" {
		binary = "yt-dlp"
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("missing in path: %s: %w", binary, err)
	}

	return &YtdlpProvider{
		path:        path,
		cookiesFile: config.Query().Get("cookies"),
	}, nil
}

func (y *YtdlpProvider) Fetch(ctx context.Context, mediaURL string) (_ *Artifact, err error) {
	ctx, span := tracer.Start(ctx, "ytdlp_fetch")
	defer tr.End(span, &err)

	info, err := y.inspect(ctx, mediaURL)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("media_id", info.ID))

	content, contentType, detectedExt, err := fetchMedia(ctx, info.URL)
	if err != nil {
		return nil, err
	}

	ext := info.Ext
	if ext == "" {
		ext = detectedExt
	}

	return &Artifact{
		Name:        BuildFilename(info.Title, info.ID, ext),
		ContentType: contentType,
		Content:     content,
	}, nil
}

type mediaInfo struct {
	ID    string
	Title string
	Ext   string
	URL   string
}

func (y *YtdlpProvider) inspect(ctx context.Context, mediaURL string) (mediaInfo, error) {
	args := []string{
		"-j",            // dump metadata as json, no download
		"--no-playlist", // single posts only
		"--no-warnings",
		"-f", "best",
		"--socket-timeout", "15",
	}
	if y.cookiesFile != "" {
		args = append(args, "--cookies", y.cookiesFile)
	}
	args = append(args, mediaURL)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, y.path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return mediaInfo{}, classifyYtdlpError(stderr.String(), err)
	}

	return parseMediaInfo(stdout.Bytes())
}

func parseMediaInfo(out []byte) (mediaInfo, error) {
	info := mediaInfo{
		ID:    gjson.GetBytes(out, "id").String(),
		Title: gjson.GetBytes(out, "title").String(),
		Ext:   gjson.GetBytes(out, "ext").String(),
		URL:   gjson.GetBytes(out, "url").String(),
	}
	if info.URL == "" {
		info.URL = gjson.GetBytes(out, "requested_downloads.0.url").String()
	}
	if info.URL == "" {
		return mediaInfo{}, Errf(KindProviderError, "yt-dlp returned no direct media url")
	}
	return info, nil
}

func classifyYtdlpError(stderr string, err error) error {
	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "unsupported url"):
		return Errf(KindUnsupported, "yt-dlp does not support this url")
	case strings.Contains(msg, "404"),
		strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "no video"),
		strings.Contains(msg, "not available"):
		return Errf(KindNotFound, "media not found")
	default:
		return Wrapf(KindProviderError, fmt.Errorf("%w: %s", err, truncate(stderr, 300)), "yt-dlp failed")
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
