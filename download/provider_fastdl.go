package download

import (
	"context"
	"net/url"

	"github.com/xoxhunterxd/instagram-downloader/tr"
)

var _ Provider = (*FastDLProvider)(nil)

// FastDLProvider extracts through a self-hosted fastdl proxy. Configured as
// fastdl://host:port.
type FastDLProvider struct {
	Endpoint string
}

func NewFastDL(config *url.URL) (*FastDLProvider, error) {
	endpoint := *config
	endpoint.Scheme = "http"
	return &FastDLProvider{
		Endpoint: endpoint.String(),
	}, nil
}

type VidProxyRequest struct {
	Target string `json:"target"`
}

type VidProxyResponse struct {
	RemoteURLs []string `json:"remote_urls"`
}

type VidProxyError struct {
	Message string `json:"msg"`
}

func (vpe VidProxyError) Error() string {
	return vpe.Message
}

func (fdl *FastDLProvider) Fetch(ctx context.Context, mediaURL string) (_ *Artifact, err error) {
	ctx, span := tracer.Start(ctx, "fastdl_fetch")
	defer tr.End(span, &err)

	_, value, err := JSONRequest[VidProxyResponse, VidProxyError](ctx, "POST", fdl.Endpoint, VidProxyRequest{mediaURL})
	if err != nil {
		return nil, Wrapf(KindProviderError, err, "making fastdl request")
	}

	switch {
	case len(value.RemoteURLs) == 0:
		return nil, Errf(KindNotFound, "fastdl found no media behind the url")
	case len(value.RemoteURLs) > 1:
		return nil, Errf(KindUnsupported, "post has %d media items, only single items are supported", len(value.RemoteURLs))
	}

	content, contentType, ext, err := fetchMedia(ctx, value.RemoteURLs[0])
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Name:        BuildFilename("", MediaID(mediaURL), ext),
		ContentType: contentType,
		Content:     content,
	}, nil
}
