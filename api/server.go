// Package api is the HTTP surface: routing, request parsing and the
// mapping from download errors to status codes.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xoxhunterxd/instagram-downloader/download"
)

type Server struct {
	Addr     string
	Resolver *download.Resolver

	server *http.Server
}

func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Addr:    s.Addr,
		Handler: s.Handler(),

		ReadTimeout: 30 * time.Second,
		// no write timeout, large media responses take as long as they take
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler builds the gin engine with all routes attached. Split out from
// Start so tests can drive it without a listener.
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s.routes(engine)

	return engine
}
