package server

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "acu-chatbot/internal/common/errors"
)

// requireAdminToken gates out-of-band endpoints behind the shared admin
// secret. An unset secret is "feature not configured" (503); a wrong or
// missing bearer token is unauthorized (401).
func (s *Server) requireAdminToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := s.cfg.Admin.Token
		if expected == "" {
			err := apperrors.NewAdminNotConfiguredError()
			c.AbortWithStatusJSON(apperrors.HTTPStatus(err.Code), gin.H{
				"error": err.Message,
				"code":  err.Code,
			})
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			err := apperrors.NewAdminUnauthorizedError()
			c.AbortWithStatusJSON(apperrors.HTTPStatus(err.Code), gin.H{
				"error": err.Message,
				"code":  err.Code,
			})
			return
		}
		c.Next()
	}
}

// handleUpdateData triggers a full out-of-band refresh: live caches, the
// calendar archive and the device catalog.
func (s *Server) handleUpdateData(c *gin.Context) {
	ctx := c.Request.Context()
	s.logger.Info("manual data refresh triggered", map[string]interface{}{
		"request_id": c.GetString("request_id"),
	})

	results := gin.H{"web": "ok", "devices": "ok"}
	if err := s.manager.RefreshWeb(ctx); err != nil {
		results["web"] = err.Error()
	}
	if err := s.manager.RefreshDevices(ctx); err != nil {
		results["devices"] = err.Error()
	}

	c.JSON(http.StatusOK, results)
}

// handleAnalyticsSummary reports aggregate usage since the optional
// "hours" query parameter (default 24).
func (s *Server) handleAnalyticsSummary(c *gin.Context) {
	if s.recorder == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics devre dışı"})
		return
	}

	hours := 24
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "geçersiz hours parametresi"})
			return
		}
		hours = parsed
	}

	summary, err := s.recorder.Summarize(time.Now().Add(-time.Duration(hours) * time.Hour))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "özet hesaplanamadı"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleAnalyticsRecent returns the newest events, default 50, capped so a
// bad client cannot request the whole file.
func (s *Server) handleAnalyticsRecent(c *gin.Context) {
	if s.recorder == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics devre dışı"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "geçersiz limit parametresi"})
			return
		}
		limit = parsed
	}
	if limit > 500 {
		limit = 500
	}

	events, err := s.recorder.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "kayıtlar okunamadı"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
