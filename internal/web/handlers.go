package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shop-insights/internal/assistant"
	"shop-insights/internal/chat"
	"shop-insights/internal/dashboard"
	"shop-insights/internal/llm"
	"shop-insights/internal/storage"
)

type pageData struct {
	PageTitle   string
	Page        string
	NeedsAPIKey bool
	Range       dashboard.DateRange
	Dashboard   *dashboard.Dashboard
	Notice      string
	Transcript  []llm.Message
	Error       string
}

func (s *Server) basePage(c *gin.Context, page, title string) (pageData, error) {
	r, err := dashboard.ParseRange(c.Query("start"), c.Query("end"), s.now())
	if err != nil {
		return pageData{}, err
	}
	need, err := s.assistant.NeedsAPIKey(c.Request.Context(), sid(c))
	if err != nil {
		s.logger.Warn("failed to check api key", zap.Error(err))
	}
	return pageData{PageTitle: title, Page: page, NeedsAPIKey: need, Range: r}, nil
}

func (s *Server) handleDashboardPage(c *gin.Context) {
	data, err := s.basePage(c, "dashboard", "Dashboard")
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	d := dashboard.Build(s.newRNG(), data.Range)
	data.Dashboard = &d
	if c.Query("report") == "created" {
		data.Notice = dashboard.ReportCreated
	}
	c.HTML(http.StatusOK, "dashboard.html", data)
}

func (s *Server) handleDashboardJSON(c *gin.Context) {
	r, err := dashboard.ParseRange(c.Query("start"), c.Query("end"), s.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dashboard.Build(s.newRNG(), r))
}

func (s *Server) handleReportForm(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/?report=created")
}

func (s *Server) handleReportJSON(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": dashboard.ReportCreated})
}

func (s *Server) handleChatPage(c *gin.Context) {
	data, err := s.basePage(c, "chat", "Chatbot Insights")
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	tr, err := s.assistant.Transcript(c.Request.Context(), sid(c))
	if err != nil {
		s.logger.Error("failed to load transcript", zap.Error(err))
		data.Error = "Could not load the conversation."
	}
	data.Transcript = tr
	data.Error = firstNonEmpty(data.Error, c.Query("error"))
	c.HTML(http.StatusOK, "chat.html", data)
}

func (s *Server) handleChatForm(c *gin.Context) {
	_, err := s.assistant.Ask(c.Request.Context(), sid(c), storage.ChannelWeb, c.PostForm("message"))
	if err != nil && !errors.Is(err, chat.ErrEmptyInput) {
		s.logger.Error("chat turn failed", zap.Error(err))
		c.Redirect(http.StatusSeeOther, "/chat?error=session+unavailable")
		return
	}
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (s *Server) handleResetForm(c *gin.Context) {
	if err := s.assistant.Reset(c.Request.Context(), sid(c)); err != nil {
		s.logger.Error("reset failed", zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (s *Server) handleKeyForm(c *gin.Context) {
	key := c.PostForm("api_key")
	if key == "" {
		c.Redirect(http.StatusSeeOther, "/chat?error=empty+api+key")
		return
	}
	if err := s.assistant.SetAPIKey(c.Request.Context(), sid(c), key); err != nil {
		s.logger.Warn("failed to store api key", zap.Error(err))
		c.Redirect(http.StatusSeeOther, "/chat?error=api+key+not+accepted")
		return
	}
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (s *Server) handleTranscript(c *gin.Context) {
	ctx := c.Request.Context()
	tr, err := s.assistant.Transcript(ctx, sid(c))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	need, err := s.assistant.NeedsAPIKey(ctx, sid(c))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": tr, "needs_api_key": need})
}

type askRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	reply, err := s.assistant.Ask(c.Request.Context(), sid(c), storage.ChannelWeb, req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("chat turn failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.assistant.Reset(c.Request.Context(), sid(c)); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type keyRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

func (s *Server) handleSetKey(c *gin.Context) {
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_key is required"})
		return
	}
	err := s.assistant.SetAPIKey(c.Request.Context(), sid(c), req.APIKey)
	switch {
	case errors.Is(err, assistant.ErrKeyNotAccepted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
