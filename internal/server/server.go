// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the drafting pipeline and the exporter over HTTP.
//
// Routes:
//
//	GET  /healthz     liveness
//	POST /v1/drafts   multipart: one or more "decks" files and one "brief" file
//	POST /v1/exports  JSON {"draft": "...", "format": "docx"|"txt"}; returns the file
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pdiddy/proposal-drafter/internal/logger"
	"github.com/pdiddy/proposal-drafter/internal/pipeline"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

const (
	defaultAddr           = ":8080"
	defaultMaxUploadBytes = 32 << 20
	shutdownTimeout       = 10 * time.Second
)

// Drafter runs one drafting request. *pipeline.Pipeline satisfies it.
type Drafter interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Server is the HTTP hosting surface. The drafter and its backend are built
// before the server is constructed, so a server never listens without a
// working backend.
type Server struct {
	drafter        Drafter
	log            *logger.Logger
	addr           string
	maxUploadBytes int64
	allowOrigins   []string
	engine         *gin.Engine
}

// New builds the server and its routes.
func New(d Drafter, cfg types.ServerConfig, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		drafter:        d,
		log:            log,
		addr:           cfg.Addr,
		maxUploadBytes: cfg.MaxUploadBytes,
		allowOrigins:   cfg.AllowOrigins,
	}
	if s.addr == "" {
		s.addr = defaultAddr
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.log))
	if len(s.allowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.allowOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Content-Type", requestIDHeader},
			ExposeHeaders: []string{requestIDHeader, "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/healthz", s.health)
	v1 := r.Group("/v1")
	{
		v1.POST("/drafts", s.limitBody(), s.createDraft)
		v1.POST("/exports", s.limitBody(), s.createExport)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", s.addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
