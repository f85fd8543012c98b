// Package api exposes the journal service over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fxjournal/internal/assets"
	"fxjournal/internal/journal"
	"fxjournal/internal/leaderboard"
)

// Server wires the journal service, leaderboard and blob store into a gin
// router. The blob store is optional; without one the upload endpoints
// report the feature as unavailable.
type Server struct {
	service     *journal.Service
	leaderboard *leaderboard.Aggregator
	blob        assets.BlobStore
	jwtSecret   string
	logger      zerolog.Logger
}

// NewServer builds the HTTP server.
func NewServer(service *journal.Service, lb *leaderboard.Aggregator, blob assets.BlobStore, jwtSecret string, logger zerolog.Logger) *Server {
	return &Server{
		service:     service,
		leaderboard: lb,
		blob:        blob,
		jwtSecret:   jwtSecret,
		logger:      logger,
	}
}

// Router builds the route table.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(s.requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	authed := router.Group("/api", s.authMiddleware())
	{
		authed.POST("/auth/session", s.handleSession)

		authed.GET("/trades", s.handleListTrades)
		authed.POST("/trades", s.handleCreatePlan)
		authed.GET("/trades/:id", s.handleGetTrade)
		authed.PUT("/trades/:id", s.handleEditPlan)
		authed.POST("/trades/:id/close", s.handleCloseTrade)

		authed.GET("/trades/export", s.handleExport)
		authed.POST("/trades/import", s.handleImport)

		authed.GET("/summary", s.handleSummary)
		authed.GET("/charts", s.handleCharts)
		authed.GET("/leaderboard", s.handleLeaderboard)

		authed.GET("/upload", s.handlePresignUpload)
		authed.DELETE("/upload", s.handleDeleteUpload)
	}
	return router
}

// Run starts the server on addr and blocks.
func (s *Server) Run(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
	return s.Router().Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("Request handled")
	}
}
