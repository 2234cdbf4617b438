// Package httpapi serves the document and chat operations over HTTP with gin.
// Every /api route is scoped to the user named in the X-User-ID header.
package httpapi

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// ErrMissingPorts is returned when a required service is not provided.
var ErrMissingPorts = errors.New("httpapi: document, search and chat services are required")

// Ports aggregates the driving ports the API exposes.
type Ports struct {
	Document driving.DocumentService
	Search   driving.SearchService
	Chat     driving.ChatService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Document == nil || p.Search == nil || p.Chat == nil {
		return ErrMissingPorts
	}
	return nil
}

// Server is the HTTP API.
type Server struct {
	ports  *Ports
	engine *gin.Engine
}

// NewServer creates the API and registers its routes.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		ports:  ports,
		engine: gin.New(),
	}
	s.engine.MaxMultipartMemory = 8 << 20
	s.engine.Use(requestID(), requestLogger(), gin.Recovery())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/debug/vars", gin.WrapH(expvar.Handler()))

	api := s.engine.Group("/api", requireUser())
	{
		api.POST("/documents", s.uploadDocument)
		api.GET("/documents", s.listDocuments)
		api.GET("/documents/:id", s.getDocument)
		api.DELETE("/documents/:id", s.deleteDocument)

		api.GET("/search", s.search)

		api.POST("/chat/sessions", s.createSession)
		api.GET("/chat/sessions", s.listSessions)
		api.GET("/chat/sessions/:id", s.getSession)
		api.PATCH("/chat/sessions/:id", s.renameSession)
		api.DELETE("/chat/sessions/:id", s.deleteSession)
		api.POST("/chat/sessions/:id/messages", s.sendMessage)
	}
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
