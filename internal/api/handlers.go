package api

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"fxjournal/internal/assets"
	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/journal"
	"fxjournal/internal/metrics"
	"fxjournal/internal/models"
	"fxjournal/internal/store"
)

// writeError maps domain errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	var ve *apperrors.ValidationError
	var nf *apperrors.NotFoundError
	switch {
	case apperrors.Is(err, apperrors.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case apperrors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperrors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case apperrors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
	case apperrors.Is(err, apperrors.ErrInvalidBackup):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// sessionRequest carries the profile fields supplied by the auth provider at
// sign-in.
type sessionRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

func (s *Server) handleSession(c *gin.Context) {
	actor := principalFrom(c)

	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := &models.UserProfile{
		UID:         actor.UID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	}
	if err := s.service.UpsertProfile(c.Request.Context(), profile); err != nil {
		writeError(c, err)
		return
	}

	stored, err := s.service.GetProfile(c.Request.Context(), actor.UID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (s *Server) handleListTrades(c *gin.Context) {
	result, err := s.service.ListTrades(c.Request.Context(), principalFrom(c), c.Query("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCreatePlan(c *gin.Context) {
	var in journal.PlanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.service.CreatePlan(c.Request.Context(), principalFrom(c), c.Query("userId"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleGetTrade(c *gin.Context) {
	trade, err := s.service.GetTrade(c.Request.Context(), principalFrom(c), c.Query("userId"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleEditPlan(c *gin.Context) {
	var in journal.EditInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.service.EditPlan(c.Request.Context(), principalFrom(c), c.Query("userId"), c.Param("id"), in); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (s *Server) handleCloseTrade(c *gin.Context) {
	var in journal.CloseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.service.CloseTrade(c.Request.Context(), principalFrom(c), c.Query("userId"), c.Param("id"), in); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

func (s *Server) handleExport(c *gin.Context) {
	data, err := s.service.Export(c.Request.Context(), principalFrom(c), c.Query("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="trades-backup.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleImport(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading request body"})
		return
	}

	result, err := s.service.Import(c.Request.Context(), principalFrom(c), c.Query("userId"), data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSummary(c *gin.Context) {
	result, err := s.service.ListTrades(c.Request.Context(), principalFrom(c), c.Query("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary":  metrics.ComputeSummary(result.Trades),
		"degraded": result.Degraded,
	})
}

func (s *Server) handleCharts(c *gin.Context) {
	timeframe := metrics.Timeframe(c.DefaultQuery("timeframe", string(metrics.TimeframeDaily)))
	switch timeframe {
	case metrics.TimeframeDaily, metrics.TimeframeWeekly, metrics.TimeframeMonthly:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeframe"})
		return
	}

	result, err := s.service.ListTrades(c.Request.Context(), principalFrom(c), c.Query("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"points":   metrics.BucketByTimeframe(result.Trades, timeframe),
		"degraded": result.Degraded,
	})
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	entries, err := s.leaderboard.Build(c.Request.Context())
	if err != nil {
		// Advisory view: degrade to an empty board instead of failing.
		s.logger.Error().Err(err).Msg("Leaderboard aggregation failed, serving empty board")
		c.JSON(http.StatusOK, gin.H{"entries": []struct{}{}, "degraded": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) handlePresignUpload(c *gin.Context) {
	if s.blob == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads are not configured"})
		return
	}

	filename := path.Base(c.Query("filename"))
	if filename == "" || filename == "." || filename == "/" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename is required"})
		return
	}

	// Uploads are namespaced per user and always staged.
	key := assets.TempPrefix + principalFrom(c).UID + "-" + store.NewID() + path.Ext(filename)
	uploadURL, err := s.blob.PresignPut(c.Request.Context(), key, assets.PresignExpiry)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"uploadUrl": uploadURL,
		"publicUrl": s.blob.BaseURL() + "/" + key,
		"key":       key,
	})
}

func (s *Server) handleDeleteUpload(c *gin.Context) {
	if s.blob == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads are not configured"})
		return
	}

	key := c.Query("key")
	// Only staged objects may be deleted directly; promoted images are
	// cleaned up by the save path.
	if !strings.HasPrefix(key, assets.TempPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key must be under temp/"})
		return
	}
	if err := s.blob.Delete(c.Request.Context(), key); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
