package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"hnproxy/internal/config"
	"hnproxy/internal/models"
	"hnproxy/internal/news"
	"hnproxy/internal/poller"
	"hnproxy/internal/security"
	"hnproxy/internal/web"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// StoryService is the story pipeline the handlers call into.
type StoryService interface {
	GetNewestStories(ctx context.Context, page, pageSize int, query string) (*models.PagedResult, error)
	Refresh(ctx context.Context) error
}

type Server struct {
	router         *gin.Engine
	stories        StoryService
	poller         *poller.Poller
	port           int
	requestTimeout time.Duration
	swaggerServer  *web.SwaggerServer
}

func NewServer(stories StoryService, p *poller.Poller, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	securityConfig := &security.SecurityConfig{
		EnableRateLimit:       cfg.Security.EnableRateLimit,
		RateLimitPerSecond:    cfg.Security.RateLimitPerSecond,
		RateLimitBurst:        cfg.Security.RateLimitBurst,
		EnableCORS:            cfg.Security.EnableCORS,
		AllowedOrigins:        cfg.Security.AllowedOrigins,
		EnableSecurityHeaders: cfg.Security.EnableSecurityHeaders,
		MaxRequestSize:        cfg.Security.MaxRequestSize,
		EnableRequestID:       cfg.Security.EnableRequestID,
	}
	security.SetupSecurityMiddleware(router, securityConfig)

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	server := &Server{
		router:         router,
		stories:        stories,
		poller:         p,
		port:           cfg.Port,
		requestTimeout: requestTimeout,
		swaggerServer:  web.NewSwaggerServer(cfg.EnableSwagger),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	{
		api.GET("/news/newest", s.getNewestStories)
		api.GET("/news/newest/rss", s.getNewestStoriesRSS)
		api.POST("/news/refresh", s.refreshStories)

		// Poller control endpoints
		api.GET("/poller/status", s.getPollerStatus)
		api.POST("/poller/force-poll", s.forcePoll)
		api.GET("/poller/last-polled", s.getLastPolled)
	}

	s.swaggerServer.RegisterRoutes(s.router)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.router.Run(":" + strconv.Itoa(s.port))
}

// StartWithContext serves until ctx is cancelled, then shuts down gracefully
// and returns ctx.Err().
func (s *Server) StartWithContext(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"service":       "hnproxy",
		"poller_active": s.poller.IsPolling(),
	})
}

// getNewestStories maps the story page onto HTTP: an empty page is 404,
// any upstream fault is 500.
func (s *Server) getNewestStories(c *gin.Context) {
	result, ok := s.loadPage(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) getNewestStoriesRSS(c *gin.Context) {
	result, ok := s.loadPage(c)
	if !ok {
		return
	}

	rss, err := renderRSS(result, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error: " + err.Error(),
		})
		return
	}

	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

func (s *Server) loadPage(c *gin.Context) (*models.PagedResult, bool) {
	page := queryInt(c, "page", news.DefaultPage)
	pageSize := queryInt(c, "pageSize", news.DefaultPageSize)
	query := c.Query("query")

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.stories.GetNewestStories(ctx, page, pageSize, query)
	if err != nil {
		log.Printf("Error loading newest stories (page=%d pageSize=%d): %v", page, pageSize, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error: " + err.Error(),
		})
		return nil, false
	}

	if result == nil || len(result.Items) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no stories found",
		})
		return nil, false
	}

	return result, true
}

func (s *Server) refreshStories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()

	if err := s.stories.Refresh(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stories refreshed successfully",
	})
}

func (s *Server) getPollerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.poller.Status())
}

func (s *Server) forcePoll(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()

	if err := s.poller.ForcePoll(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Force poll completed successfully",
	})
}

func (s *Server) getLastPolled(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"last_polled": s.poller.LastPolled(),
	})
}

// queryInt reads an integer query parameter, falling back to def when it is
// missing or unparsable. Range clamping is left to the story service.
func queryInt(c *gin.Context, name string, def int) int {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
