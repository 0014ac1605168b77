package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xoxhunterxd/instagram-downloader/download"
)

type errorResponse struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// abortError turns any error into the client-facing shape. Only the kind
// and the safe message leave the process, the full chain goes to the log.
func abortError(c *gin.Context, err error) {
	kind := download.KindProviderError
	message := "download failed"

	var derr *download.Error
	if errors.As(err, &derr) {
		kind = derr.Kind
		message = derr.Message
	}

	slog.Error("request failed",
		"error", err,
		"kind", kind,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString("request_id"),
	)

	c.AbortWithStatusJSON(statusOf(kind), errorResponse{
		ErrorKind: string(kind),
		Message:   message,
	})
}

func statusOf(kind download.Kind) int {
	switch kind {
	case download.KindInvalidURL, download.KindBadRequest:
		return http.StatusBadRequest
	case download.KindNotFound:
		return http.StatusNotFound
	case download.KindUnsupported:
		return http.StatusUnprocessableEntity
	case download.KindStorageUnconfigured:
		return http.StatusServiceUnavailable
	default:
		// provider and storage failures are upstream problems
		return http.StatusBadGateway
	}
}
