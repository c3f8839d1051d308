package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/casestrainer/casestrainer/internal/api/handlers"
	"github.com/casestrainer/casestrainer/internal/api/middleware"
	"github.com/casestrainer/casestrainer/internal/cache"
	"github.com/casestrainer/casestrainer/internal/jobs"
	"github.com/casestrainer/casestrainer/internal/kvstore"
	"github.com/casestrainer/casestrainer/internal/observability"
	"github.com/casestrainer/casestrainer/internal/websocket"
)

// Server is the CaseStrainer Submission API (§6): /api/analyze,
// /api/task_status/{job_id}, /api/health, /api/cache/clear-unverified, plus
// the additive /ws job-progress stream and /api/network side query.
type Server struct {
	app      *fiber.App
	store    kvstore.Store
	runtime  *jobs.Runtime
	cache    *cache.VerificationCache
	logger   *observability.Logger
	metrics  *observability.Metrics
	ws       *websocket.Server
	wsCancel context.CancelFunc
}

// NewServer creates a new API server.
func NewServer(store kvstore.Store, runtime *jobs.Runtime, vc *cache.VerificationCache, logger *observability.Logger, metrics *observability.Metrics) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "CaseStrainer API v1.0.0",
		ServerHeader: "CaseStrainer",
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	ws := websocket.NewServer()
	runtime.SetEventEmitter(websocket.NewEventEmitter(ws))

	return &Server{
		app:     app,
		store:   store,
		runtime: runtime,
		cache:   vc,
		logger:  logger,
		metrics: metrics,
		ws:      ws,
	}
}

// SetupRoutes configures all API routes.
func (s *Server) SetupRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Metrics(s.metrics))
	s.app.Use(middleware.EndpointRateLimit(middleware.DefaultEndpointRateLimitConfig(), s.logger))

	s.app.Get("/health", handlers.HealthCheck(s.store))
	s.app.Get("/metrics", handlers.MetricsHandler(s.metrics))

	ctx, cancel := context.WithCancel(context.Background())
	s.wsCancel = cancel
	websocket.Start(ctx, s.ws)
	s.app.Get("/ws", websocket.UpgradeMiddleware(), s.ws.Handler())

	api := s.app.Group("/api")
	api.Post("/analyze", handlers.Analyze(s.runtime))
	api.Get("/task_status/:job_id", handlers.TaskStatus(s.runtime))
	api.Get("/network/:job_id", handlers.CitationNetwork(s.runtime))
	api.Get("/health", handlers.HealthCheck(s.store))
	api.Post("/cache/clear-unverified", handlers.ClearUnverified(s.cache))

	s.app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "resource not found",
			"path":  c.Path(),
		})
	})
}

// GetApp returns the Fiber app.
func (s *Server) GetApp() *fiber.App {
	return s.app
}

// Start starts the HTTP server.
func (s *Server) Start(address string) error {
	return s.app.Listen(address)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	if s.wsCancel != nil {
		s.wsCancel()
	}
	return s.app.Shutdown()
}
