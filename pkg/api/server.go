package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/diagomike/RecompBackend/pkg/asset"
	"github.com/diagomike/RecompBackend/pkg/events"
	"github.com/diagomike/RecompBackend/pkg/log"
	"github.com/diagomike/RecompBackend/pkg/metrics"
	"github.com/diagomike/RecompBackend/pkg/storage"
	"github.com/diagomike/RecompBackend/pkg/types"
)

// ModuleScanner triggers a discovery cycle over the modules root
type ModuleScanner interface {
	DiscoverAndRegister() error
}

// TaskSubmitter accepts validated task submissions
type TaskSubmitter interface {
	Submit(moduleID string, inputMap map[string]string, config map[string]any) (*types.SubmitResult, error)
}

// Options configures the HTTP server
type Options struct {
	Addr       string
	EnableCORS bool
}

// Server exposes the orchestrator over HTTP
type Server struct {
	store   storage.Store
	assets  *asset.Manager
	tasks   TaskSubmitter
	scanner ModuleScanner
	broker  *events.Broker
	logger  zerolog.Logger

	router *gin.Engine
	srv    *http.Server
}

// NewServer wires the HTTP surface over the given components
func NewServer(opts Options, store storage.Store, assets *asset.Manager, tasks TaskSubmitter, scanner ModuleScanner, broker *events.Broker) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		store:   store,
		assets:  assets,
		tasks:   tasks,
		scanner: scanner,
		broker:  broker,
		logger:  log.WithComponent("api"),
		router:  router,
	}

	router.Use(s.requestMetrics())
	if opts.EnableCORS {
		cfg := cors.DefaultConfig()
		cfg.AllowAllOrigins = true
		cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
		router.Use(cors.New(cfg))
	}

	s.registerRoutes()
	s.srv = &http.Server{
		Addr:    opts.Addr,
		Handler: router,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.router.GET("/events", s.handleEvents)

	assets := s.router.Group("/assets")
	{
		assets.POST("/upload", s.handleAssetUpload)
		assets.POST("/value", s.handleAssetValue)
		assets.GET("", s.handleAssetList)
		assets.GET("/:id", s.handleAssetGet)
		assets.GET("/:id/download", s.handleAssetDownload)
	}

	tasks := s.router.Group("/tasks")
	{
		tasks.POST("", s.handleTaskSubmit)
		tasks.GET("", s.handleTaskList)
		tasks.GET("/:id", s.handleTaskGet)
		tasks.GET("/:id/logs", s.handleTaskLogs)
	}

	modules := s.router.Group("/modules")
	{
		modules.GET("", s.handleModuleList)
		modules.GET("/:id", s.handleModuleGet)
		modules.POST("/scan", s.handleModuleScan)
	}
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Router exposes the gin engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

// handleEvents streams broker events to the client as server-sent events
func (s *Server) handleEvents(c *gin.Context) {
	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return true
		case <-keepalive.C:
			c.SSEvent("keepalive", gin.H{"time": time.Now().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
