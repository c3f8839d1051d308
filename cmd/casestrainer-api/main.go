package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/casestrainer/casestrainer/internal/api"
	"github.com/casestrainer/casestrainer/internal/cache"
	"github.com/casestrainer/casestrainer/internal/citationdb"
	"github.com/casestrainer/casestrainer/internal/config"
	"github.com/casestrainer/casestrainer/internal/docloader"
	"github.com/casestrainer/casestrainer/internal/jobs"
	"github.com/casestrainer/casestrainer/internal/kvstore"
	"github.com/casestrainer/casestrainer/internal/observability"
	"github.com/casestrainer/casestrainer/internal/queue"
	"github.com/casestrainer/casestrainer/internal/verify"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	logger.Info("Starting CaseStrainer API server")

	metrics := observability.NewMetrics()

	store, err := kvstore.New(cfg.Store)
	if err != nil {
		logger.Fatalf("Failed to initialize job store: %v", err)
	}
	logger.Infof("Using %s job store", orDefault(cfg.Store.Driver, "memory"))

	backend, err := cache.NewCache(&cache.Config{
		Type:    cfg.Cache.Driver,
		TTL:     cfg.Cache.TTL,
		MaxKeys: cfg.Cache.MaxKeys,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize cache backend: %v", err)
	}
	vc := cache.NewVerificationCache(backend)

	var q queue.Queue
	switch cfg.Queue.Driver {
	case "memory", "":
		q = queue.NewMemoryQueue()
		logger.Info("Using in-memory queue")
	case "redis":
		q, err = queue.NewRedisQueue(&queue.RedisQueueConfig{
			Addr:       cfg.Redis.URL,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			Stream:     "casestrainer:jobs",
			Group:      "casestrainer-workers",
			Consumer:   "api-enqueuer",
			MaxRetries: cfg.Queue.MaxRetries,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize Redis queue: %v", err)
		}
		logger.Info("Using Redis queue")
	case "nats":
		q, err = queue.NewNATSQueue(&queue.NATSQueueConfig{
			URL:        cfg.Queue.URL,
			Stream:     "CASESTRAINER_JOBS",
			Consumer:   "casestrainer-api",
			MaxRetries: cfg.Queue.MaxRetries,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize NATS queue: %v", err)
		}
		logger.Info("Using NATS queue")
	default:
		logger.Fatalf("Unsupported queue driver: %s", cfg.Queue.Driver)
	}

	db := citationdb.NewHTTPClient(cfg.Verifier.BaseURL, cfg.Verifier.APIKey, cfg.Verifier.HTTPTimeout)
	verifier := verify.New(db, vc, cfg.Verifier, metrics)
	loader := docloader.New(cfg.Verifier.HTTPTimeout)

	runtime := jobs.New(store, q, vc, loader, verifier, cfg.Worker.JobTimeout, cfg.Worker.StageWatchdog, logger, metrics)

	server := api.NewServer(store, runtime, vc, logger, metrics)
	server.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.Infof("Starting HTTP server on %s", serverAddr)
		if err := server.Start(serverAddr); err != nil {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API server...")

	if err := server.Shutdown(); err != nil {
		logger.Errorf("HTTP server forced to shutdown: %v", err)
	}
	if err := q.Close(); err != nil {
		logger.Errorf("Failed to close queue: %v", err)
	}
	if err := store.Close(); err != nil {
		logger.Errorf("Failed to close job store: %v", err)
	}

	logger.Info("API server exited")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
