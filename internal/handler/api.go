package handler

import (
	"bytes"
	"encoding/csv"
	"errors"
	"net/http"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/models"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler handles HTTP requests
type Handler struct {
	rater  *service.Rater
	logger *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(rater *service.Rater, logger *zap.Logger) *Handler {
	return &Handler{
		rater:  rater,
		logger: logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		// Session lifecycle
		api.POST("/login", h.Login)
		api.GET("/sessions/:id", h.GetSession)
		api.GET("/sessions/:id/current", h.Current)
		api.POST("/sessions/:id/navigate", h.Navigate)

		// Rating
		api.POST("/sessions/:id/ratings", h.SaveRatings)
		api.POST("/sessions/:id/suggest", h.Suggest)

		// Read-only surfaces
		api.GET("/leaderboard", h.Leaderboard)
		api.GET("/export/:variant/csv", h.ExportCSV)
		api.GET("/export/:variant/json", h.ExportJSON)
	}

	// Health check and metrics
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Login starts or resumes an annotator session
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.rater.Login(c.Request.Context(), req.Username)
	if errors.Is(err, service.ErrUsernameRequired) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to start session", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to start session"})
		return
	}

	c.JSON(http.StatusOK, sess)
}

// GetSession returns session state and progress
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.rater.GetSession(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	position, total, err := h.rater.Progress(c.Request.Context(), sess)
	if err != nil {
		h.logger.Error("Failed to load progress", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":  sess,
		"position": position,
		"total":    total,
	})
}

// Current returns the rating screen for the session cursor
func (h *Handler) Current(c *gin.Context) {
	view, err := h.rater.Current(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrAllComplete) {
		c.JSON(http.StatusOK, gin.H{"complete": true})
		return
	}
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to build rating screen", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load current sentence"})
		return
	}

	c.JSON(http.StatusOK, view)
}

// Navigate moves the session cursor
func (h *Handler) Navigate(c *gin.Context) {
	var req models.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.rater.Navigate(c.Request.Context(), c.Param("id"), req)
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":  sess,
		"complete": sess.State == models.StateComplete,
	})
}

// SaveRatings upserts the submitted ratings and optional correction. Tables
// are written independently; any failed table turns the response into a 502
// carrying the per-table report.
func (h *Handler) SaveRatings(c *gin.Context) {
	var req models.SaveRatingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.rater.SaveRatings(c.Request.Context(), c.Param("id"), req)
	if errors.Is(err, service.ErrAllComplete) {
		c.JSON(http.StatusConflict, gin.H{"error": "all items complete, nothing to rate"})
		return
	}
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if report.Failed > 0 {
		h.logger.Warn("Save partially failed",
			zap.Int("saved", report.Saved),
			zap.Int("failed", report.Failed))
		c.JSON(http.StatusBadGateway, report)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Suggest returns an LLM-drafted correction for the current sentence
func (h *Handler) Suggest(c *gin.Context) {
	suggestion, err := h.rater.SuggestCorrection(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrSuggestUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "suggestions are not configured"})
		return
	}
	if errors.Is(err, service.ErrAllComplete) {
		c.JSON(http.StatusConflict, gin.H{"error": "all items complete"})
		return
	}
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to draft suggestion", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "suggestion failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}

// Leaderboard returns per-annotator completed-set counts
func (h *Handler) Leaderboard(c *gin.Context) {
	rows, err := h.rater.Leaderboard(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build leaderboard", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to build leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": rows,
		"total":       len(rows),
	})
}

// ExportCSV dumps one variant's rating table as CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	variant := models.ModelVariant(c.Param("variant"))
	tab, err := h.rater.ExportTable(c.Request.Context(), variant)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Write(tab.Columns)
	for _, row := range tab.Rows {
		writer.Write(row)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("Failed to encode CSV export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode export"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=ratings_"+models.VariantTabNames[variant]+".csv")
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// ExportJSON dumps one variant's rating table as JSON
func (h *Handler) ExportJSON(c *gin.Context) {
	variant := models.ModelVariant(c.Param("variant"))
	tab, err := h.rater.ExportTable(c.Request.Context(), variant)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=ratings_"+models.VariantTabNames[variant]+".json")
	c.IndentedJSON(http.StatusOK, tab)
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "model-eval-rater",
		"version": "1.0.0",
	})
}
