package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"acu-chatbot/internal/analytics"
	"acu-chatbot/internal/common/metrics"
	"acu-chatbot/internal/router"
	"acu-chatbot/internal/session"
)

const (
	maxMessageLength = 1000
	defaultSession   = "default_user"
)

type chatRequest struct {
	Message   string            `json:"message"`
	SessionID string            `json:"session_id"`
	History   []session.Message `json:"history"`
}

// validate enforces the boundary rules: message 1..1000 characters
// (whitespace-only counts as empty), session optional.
func (r *chatRequest) validate() string {
	if strings.TrimSpace(r.Message) == "" {
		return "message boş olamaz"
	}
	if len([]rune(r.Message)) > maxMessageLength {
		return "message 1000 karakterden uzun olamaz"
	}
	if len(r.SessionID) > 100 {
		return "session_id 100 karakterden uzun olamaz"
	}
	return ""
}

func (r *chatRequest) session() string {
	if r.SessionID == "" {
		return defaultSession
	}
	return r.SessionID
}

// loadHistory prefers the client-supplied history and falls back to the
// persisted one.
func (s *Server) loadHistory(c *gin.Context, req *chatRequest) []session.Message {
	if len(req.History) > 0 {
		if len(req.History) > session.HistoryLimit {
			return req.History[len(req.History)-session.HistoryLimit:]
		}
		return req.History
	}
	if s.history == nil {
		return nil
	}
	return s.history.HistoryOrEmpty(c.Request.Context(), req.session())
}

// persistTurn saves both sides of the exchange, best-effort.
func (s *Server) persistTurn(c *gin.Context, sessionID, message, answer string) {
	if s.history == nil {
		return
	}
	ctx := c.Request.Context()
	s.history.Save(ctx, sessionID, "user", message)
	s.history.Save(ctx, sessionID, "assistant", answer)
}

func (s *Server) record(c *gin.Context, sessionID string, ans *router.Answer, started time.Time) {
	ctx := c.Request.Context()
	if s.obs != nil {
		s.obs.RecordMessage(ctx, ans.Tier)
		s.obs.RecordDuration(ctx, time.Since(started), ans.Tier)
	}
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, analytics.Event{
		SessionID:  sessionID,
		Intent:     ans.Intent,
		Tier:       ans.Tier,
		Source:     ans.Source,
		DurationMS: time.Since(started).Milliseconds(),
	})
}

// handleChat is the main conversational endpoint.
func (s *Server) handleChat(c *gin.Context) {
	started := time.Now()

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "geçersiz istek gövdesi"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	sessionID := req.session()
	history := s.loadHistory(c, &req)

	ans := s.router.Handle(c.Request.Context(), sessionID, req.Message, history)

	s.persistTurn(c, sessionID, req.Message, ans.Text)
	s.record(c, sessionID, ans, started)
	metrics.ChatDuration.WithLabelValues(ans.Tier).Observe(time.Since(started).Seconds())

	c.JSON(http.StatusOK, gin.H{
		"response":    ans.Text,
		"source":      ans.Source,
		"intent_name": ans.Intent,
		"session_id":  sessionID,
	})
}

// streamFrame is one NDJSON line of the streaming response.
type streamFrame struct {
	Token string `json:"token"`
	Done  bool   `json:"done"`
}

// handleChatStream answers over newline-delimited JSON frames. The first
// frame is an empty keep-alive so clients see headers and a byte
// immediately; the last frame carries done=true.
func (s *Server) handleChatStream(c *gin.Context) {
	started := time.Now()

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "geçersiz istek gövdesi"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	sessionID := req.session()
	history := s.loadHistory(c, &req)

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")

	flusher, _ := c.Writer.(http.Flusher)
	enc := json.NewEncoder(c.Writer)

	emit := func(token string) error {
		if err := enc.Encode(streamFrame{Token: token}); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	// keep-alive frame before any slow work
	if err := emit(""); err != nil {
		return
	}

	ans, err := s.router.HandleStream(c.Request.Context(), sessionID, req.Message, history, emit)
	if err != nil {
		s.logger.Warn("chat stream aborted", map[string]interface{}{
			"session": sessionID,
			"error":   err.Error(),
		})
		return
	}

	enc.Encode(streamFrame{Done: true})
	if flusher != nil {
		flusher.Flush()
	}

	s.persistTurn(c, sessionID, req.Message, ans.Text)
	s.record(c, sessionID, ans, started)
	metrics.ChatDuration.WithLabelValues(ans.Tier).Observe(time.Since(started).Seconds())
}
