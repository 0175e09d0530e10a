// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the assessment pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pdiddy/assessment-engine/internal/generate"
	"github.com/pdiddy/assessment-engine/internal/logger"
	"github.com/pdiddy/assessment-engine/pkg/types"
)

const serviceName = "assessment-engine"

// Server routes HTTP requests to a Coordinator.
type Server struct {
	coord *generate.Coordinator
	cfg   types.ServerConfig
	log   *logger.Logger
}

// New creates a server. cfg.MaxUploadBytes of zero keeps the default.
func New(coord *generate.Coordinator, cfg types.ServerConfig, log *logger.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = types.Defaults().Server.MaxUploadBytes
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Server{coord: coord, cfg: cfg, log: log}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(recovery(s.log))
	r.Use(requestID())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(corsFor(s.cfg.AllowOrigins))
	r.Use(requestLogger(s.log))

	r.GET("/healthz", s.health)

	v1 := r.Group("/v1")
	{
		v1.POST("/assessments", s.createAssessment)
		v1.POST("/batch", s.batch)

		v1.POST("/conversations", s.createConversation)
		v1.GET("/conversations/:id/messages", s.conversationHistory)
		v1.POST("/conversations/:id/messages", s.ask)
		v1.DELETE("/conversations/:id", s.closeConversation)
	}
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server.listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("server.shutdown")
		return srv.Shutdown(shutdownCtx)
	}
}
