// Package http serves the vecfs HTTP API.
//
// The /v2/vrkai and /v2/vrpack endpoints are stateless: they build, inspect
// and search uploaded files. The /v2/fs and /v2/inbox endpoints act on the
// tenant named by the X-Vecfs-Tenant header.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/ingest"
	"github.com/fyrsmithlabs/vecfs/internal/kvstore"
	"github.com/fyrsmithlabs/vecfs/internal/logging"
	"github.com/fyrsmithlabs/vecfs/internal/tenant"
	"github.com/fyrsmithlabs/vecfs/internal/vecfs"
)

// TenantHeader names the tenant a filesystem request acts on.
const TenantHeader = "X-Vecfs-Tenant"

// Config holds HTTP server configuration.
type Config struct {
	Host      string
	Port      int
	BodyLimit string
	// DefaultTenant serves tenant routes sent without TenantHeader.
	DefaultTenant string

	DefaultK     int
	MaxK         int
	NumResources int
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 9550
	}
	if c.BodyLimit == "" {
		c.BodyLimit = "200M"
	}
	if c.DefaultK <= 0 {
		c.DefaultK = 10
	}
	if c.MaxK <= 0 {
		c.MaxK = 100
	}
	if c.NumResources <= 0 {
		c.NumResources = 5
	}
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	fs      *vecfs.Service
	store   *kvstore.Store
	builder *ingest.Builder
	logger  *logging.Logger
	config  *Config
}

// NewServer wires the routes over fs, the store it runs on, and builder.
func NewServer(fs *vecfs.Service, store *kvstore.Store, builder *ingest.Builder, logger *zap.Logger, cfg *Config) (*Server, error) {
	if fs == nil || store == nil {
		return nil, fmt.Errorf("filesystem service and store are required")
	}
	if builder == nil {
		return nil, fmt.Errorf("resource builder is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	s := &Server{
		echo:    e,
		fs:      fs,
		store:   store,
		builder: builder,
		logger:  logging.Wrap(logger),
		config:  cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(s.requestContext)
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(s.accessLog)

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v2 := s.echo.Group("/v2")

	vr := v2.Group("/vrkai")
	vr.POST("/generate", s.handleVRKaiGenerate)
	vr.POST("/search", s.handleVRKaiSearch)
	vr.POST("/view", s.handleVRKaiView)

	pack := v2.Group("/vrpack")
	pack.POST("/generate", s.handleVRPackGenerate)
	pack.POST("/add", s.handleVRPackAdd)
	pack.POST("/search", s.handleVRPackSearch)

	fs := v2.Group("/fs", s.requireTenant)
	fs.GET("/tree", s.handleTree)
	fs.POST("/folders", s.handleCreateFolder)
	fs.DELETE("/folders", s.handleDeleteFolder)
	fs.POST("/items", s.handleSaveItem)
	fs.GET("/items", s.handleGetItem)
	fs.DELETE("/items", s.handleDeleteItem)
	fs.POST("/items/move", s.handleMoveItem)
	fs.POST("/items/copy", s.handleCopyItem)
	fs.GET("/access", s.handleAccessLogs)
	fs.POST("/search", s.handleFSSearch)
	fs.GET("/export", s.handleExport)

	inbox := v2.Group("/inbox", s.requireTenant)
	inbox.POST("/:inbox/files", s.handleInboxUpload)
	inbox.GET("/:inbox", s.handleInboxList)
	inbox.DELETE("/:inbox", s.handleInboxDelete)
	inbox.POST("/:inbox/ingest", s.handleInboxIngest)
}

// requestContext copies the request ID into the request context so every
// log line of the request carries it.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		req := c.Request()
		c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		return next(c)
	}
}

// requireTenant resolves the tenant from TenantHeader or the configured
// default and rejects requests with neither.
func (s *Server) requireTenant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(TenantHeader)
		if id == "" {
			id = s.config.DefaultTenant
		}
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, TenantHeader+" header is required")
		}
		ctx, err := tenant.WithTenant(c.Request().Context(), id)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Info(c.Request().Context(), "http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:         "ok",
		EmbeddingModel: s.builder.Provider().Model(),
	})
}

// Handler exposes the router, for tests and embedding in other servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
