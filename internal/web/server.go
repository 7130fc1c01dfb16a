package web

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shop-insights/internal/assistant"
	"shop-insights/internal/dashboard"
)

const sessionCookie = "sid"

// Server serves the dashboard and the chat page over HTTP.
type Server struct {
	assistant *assistant.Service
	logger    *zap.Logger
	engine    *gin.Engine
	server    *http.Server
	addr      string
	now       func() time.Time
	newRNG    func() *rand.Rand
}

func New(addr string, svc *assistant.Service, logger *zap.Logger) *Server {
	s := &Server{
		assistant: svc,
		logger:    logger,
		addr:      addr,
		now:       time.Now,
		newRNG:    dashboard.NewRNG,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), sessionID())
	r.SetHTMLTemplate(parseTemplates())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": s.now().UTC()})
	})

	r.GET("/", s.handleDashboardPage)
	r.POST("/reports", s.handleReportForm)
	r.GET("/chat", s.handleChatPage)
	r.POST("/chat", s.handleChatForm)
	r.POST("/chat/reset", s.handleResetForm)
	r.POST("/chat/key", s.handleKeyForm)

	api := r.Group("/api")
	{
		api.GET("/dashboard", s.handleDashboardJSON)
		api.POST("/reports", s.handleReportJSON)
		api.GET("/chat", s.handleTranscript)
		api.POST("/chat", s.handleAsk)
		api.POST("/chat/reset", s.handleReset)
		api.POST("/key", s.handleSetKey)
	}
	return r
}

func (s *Server) Handler() http.Handler { return s.engine }

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.logger.Info("starting web server", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// sessionID makes sure every visitor carries a session cookie.
func sessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
		}
		c.Set(sessionCookie, id)
		c.Next()
	}
}

func sid(c *gin.Context) string { return c.GetString(sessionCookie) }
