package download

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/xoxhunterxd/instagram-downloader/tr"
)

var _ Provider = (*CobaltProvider)(nil)

// CobaltProvider extracts through a cobalt.tools instance. Configured as
// cobalt://host[:port][?insecure][&key=API_KEY].
type CobaltProvider struct {
	Endpoint string
	APIKey   string
}

func NewCobalt(config *url.URL) (*CobaltProvider, error) {
	endpoint := *config
	query := config.Query()

	endpoint.RawQuery = ""

	endpoint.Scheme = "https"
	if query.Has("insecure") {
		endpoint.Scheme = "http"
	}

	apiKey := query.Get("key")

	return &CobaltProvider{
		Endpoint: endpoint.String(),
		APIKey:   apiKey,
	}, nil
}

func (c *CobaltProvider) String() string {
	return fmt.Sprintf("cobalt.tools at %s", c.Endpoint)
}

type CobaltRequest struct {
	Url string `json:"url"`
}

type CobaltError struct {
	Status string `json:"status"`
	Err    struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (ce CobaltError) Error() string {
	return "cobalt error: " + ce.Err.Code
}

type CobaltResponse struct {
	Status string         `json:"status"` // tunnel / local-processing / redirect / picker / error
	Url    string         `json:"url"`
	Picker []CobaltPicker `json:"picker"`
	Audio  any            `json:"audio"`
}

type CobaltPicker struct {
	Type string `json:"type"` // photo / video / gif
	Url  string `json:"url"`
}

func (c *CobaltProvider) Fetch(ctx context.Context, mediaURL string) (_ *Artifact, err error) {
	ctx, span := tracer.Start(ctx, "cobalt_fetch")
	defer tr.End(span, &err)

	remoteURL, err := c.extract(ctx, mediaURL)
	if err != nil {
		return nil, err
	}

	content, contentType, ext, err := fetchMedia(ctx, remoteURL)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Name:        BuildFilename("", MediaID(mediaURL), ext),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func (c *CobaltProvider) extract(ctx context.Context, mediaURL string) (string, error) {
	var (
		req     = CobaltRequest{Url: mediaURL}
		headers []string
	)

	if c.APIKey != "" {
		headers = []string{"Authorization", "Api-Key " + c.APIKey}
	}

	_, value, err := JSONRequest[CobaltResponse, CobaltError](ctx, "POST", c.Endpoint, req, headers...)
	if err != nil {
		var cerr CobaltError
		if errors.As(err, &cerr) {
			return "", classifyCobaltError(cerr)
		}
		return "", Wrapf(KindProviderError, err, "making cobalt request")
	}

	switch value.Status {
	case "redirect", "tunnel":
		return value.Url, nil
	case "picker":
		if len(value.Picker) == 1 {
			return value.Picker[0].Url, nil
		}
		return "", Errf(KindUnsupported, "post has %d media items, only single items are supported", len(value.Picker))
	default:
		return "", Errf(KindProviderError, "unexpected cobalt response type: %s", value.Status)
	}
}

func classifyCobaltError(cerr CobaltError) error {
	code := strings.ToLower(cerr.Err.Code)
	switch {
	case strings.Contains(code, "link") || strings.Contains(code, "invalid"):
		return Wrapf(KindInvalidURL, cerr, "cobalt rejected the url")
	case strings.Contains(code, "unavailable") || strings.Contains(code, "not_found"):
		return Wrapf(KindNotFound, cerr, "media not found")
	case strings.Contains(code, "unsupported"):
		return Wrapf(KindUnsupported, cerr, "cobalt does not support this url")
	default:
		return Wrapf(KindProviderError, cerr, "cobalt extraction failed")
	}
}
