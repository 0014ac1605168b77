package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xoxhunterxd/instagram-downloader/download"
)

const (
	developerTag   = "@xoxhunterxd"
	serviceTitle   = "Instagram Media Downloader API"
	serviceVersion = "2.0.0"
)

func (s *Server) routes(engine *gin.Engine) {
	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/", s.handleRoot)

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/instagram/download", s.handleDownload)
		v1.POST("/instagram/download", s.handleDownload)
	}

	// everything else is treated as a pasted media url
	engine.NoRoute(s.handlePastedURL)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"developer": developerTag,
	})
}

// handleRoot serves a small service description, or a download when the
// caller passed ?url= directly to the root.
func (s *Server) handleRoot(c *gin.Context) {
	if rawURL := c.Query("url"); rawURL != "" {
		s.deliver(c, rawURL, c.Query("delivery"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service":   serviceTitle,
		"version":   serviceVersion,
		"status":    "ok",
		"developer": developerTag,
		"endpoints": gin.H{
			"download": "/api/v1/instagram/download?url=<instagram_url>&delivery=<direct|link>",
			"health":   "/health",
			"metrics":  "/metrics",
		},
	})
}

type downloadRequest struct {
	URL      string `json:"url" form:"url"`
	Delivery string `json:"delivery" form:"delivery"`
}

func (s *Server) handleDownload(c *gin.Context) {
	var req downloadRequest

	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBind(&req); err != nil {
			abortError(c, download.Wrapf(download.KindBadRequest, err, "malformed request body"))
			return
		}
	} else {
		req.URL = c.Query("url")
		req.Delivery = c.Query("delivery")
	}

	s.deliver(c, req.URL, req.Delivery)
}

// handlePastedURL lets callers paste an instagram url straight after the
// host, percent-encoded or not, the scheme optional.
func (s *Server) handlePastedURL(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		abortError(c, download.Errf(download.KindNotFound, "route not found"))
		return
	}

	target := strings.TrimPrefix(c.Request.URL.Path, "/")
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	// reattach the query string, minus our own delivery param, unless the
	// pasted url already carried one through the escaping
	query := c.Request.URL.Query()
	delivery := query.Get("delivery")
	query.Del("delivery")
	if rest := query.Encode(); rest != "" && !strings.Contains(target, "?") {
		target += "?" + rest
	}

	s.deliver(c, target, delivery)
}

type linkResponse struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	Delivery    string `json:"delivery"`
	Developer   string `json:"developer"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

func (s *Server) deliver(c *gin.Context, rawURL, delivery string) {
	if rawURL == "" {
		abortError(c, download.Errf(download.KindBadRequest, "url parameter is required"))
		return
	}

	mode, err := download.ParseMode(delivery)
	if err != nil {
		abortError(c, err)
		return
	}

	result, err := s.Resolver.Deliver(c.Request.Context(), download.Request{URL: rawURL, Mode: mode})
	if err != nil {
		abortError(c, err)
		return
	}

	if result.Mode == download.ModeLink {
		c.Header("X-Developer", developerTag)
		c.JSON(http.StatusOK, linkResponse{
			DownloadURL: result.Link.URL,
			Filename:    result.Link.Filename,
			Delivery:    "link",
			Developer:   developerTag,
			ExpiresIn:   result.Link.ExpiresIn,
		})
		return
	}

	streamArtifact(c, result.Artifact)
}

func streamArtifact(c *gin.Context, artifact *download.Artifact) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Name))
	c.Header("X-Developer", developerTag)
	c.Data(http.StatusOK, artifact.ContentType, artifact.Content)
}
