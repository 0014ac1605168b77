package download

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/xoxhunterxd/instagram-downloader/tr"
)

var _ Provider = (*SsvidProvider)(nil)

// SsvidProvider scrapes ssvid.net's search api. Configured as ssvid: or
// ssvid://host to point at a mirror.
type SsvidProvider struct {
	Endpoint string
}

func NewSsvid(config *url.URL) (*SsvidProvider, error) {
	endpoint := "https://www.ssvid.net"
	if config.Host != "" {
		e := *config
		e.Scheme = "https"
		e.RawQuery = ""
		endpoint = e.String()
	}
	return &SsvidProvider{Endpoint: endpoint}, nil
}

type ssvidResponse struct {
	Status string `json:"status"`
	Mess   string `json:"mess"`
	Data   struct {
		Title string `json:"title"`
		Pid   string `json:"pid"`
		Links struct {
			Video []struct {
				QText string `json:"q_text"`
				Size  string `json:"size"`
				URL   string `json:"url"`
			} `json:"video"`
		} `json:"links"`
	} `json:"data"`
}

func (s *SsvidProvider) Fetch(ctx context.Context, mediaURL string) (_ *Artifact, err error) {
	ctx, span := tracer.Start(ctx, "ssvid_fetch")
	defer tr.End(span, &err)

	res, err := s.search(ctx, mediaURL)
	if err != nil {
		return nil, err
	}

	if len(res.Data.Links.Video) == 0 {
		if res.Mess != "" {
			return nil, Errf(KindNotFound, "ssvid found nothing: %s", res.Mess)
		}
		return nil, Errf(KindNotFound, "no videos in ssvid response")
	}

	content, contentType, ext, err := fetchMedia(ctx, res.Data.Links.Video[0].URL)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Name:        BuildFilename(res.Data.Title, MediaID(mediaURL), ext),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func (s *SsvidProvider) search(ctx context.Context, mediaURL string) (ssvidResponse, error) {
	var res ssvidResponse

	data := url.Values{
		"query": {mediaURL},
		"vt":    {"home"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint+"/api/ajax/search", strings.NewReader(data.Encode()))
	if err != nil {
		return res, Wrapf(KindProviderError, err, "creating ssvid request")
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json")

	resp, err := httpDo(req)
	if err != nil {
		return res, Wrapf(KindProviderError, err, "making ssvid request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return res, Wrapf(KindProviderError, err, "reading ssvid response")
	}
	if resp.StatusCode != http.StatusOK {
		return res, Errf(KindProviderError, "unexpected ssvid status: %s", resp.Status)
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return res, Wrapf(KindProviderError, err, "parsing ssvid response")
	}
	return res, nil
}
