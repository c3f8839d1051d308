package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/casestrainer/casestrainer/internal/cache"
	"github.com/casestrainer/casestrainer/internal/citationdb"
	"github.com/casestrainer/casestrainer/internal/config"
	"github.com/casestrainer/casestrainer/internal/docloader"
	"github.com/casestrainer/casestrainer/internal/jobs"
	"github.com/casestrainer/casestrainer/internal/kvstore"
	"github.com/casestrainer/casestrainer/internal/observability"
	"github.com/casestrainer/casestrainer/internal/queue"
	"github.com/casestrainer/casestrainer/internal/verify"
	"github.com/casestrainer/casestrainer/internal/worker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	logger.Info("Starting CaseStrainer worker")

	metrics := observability.NewMetrics()

	store, err := kvstore.New(cfg.Store)
	if err != nil {
		logger.Fatalf("Failed to initialize job store: %v", err)
	}
	defer store.Close()

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
			Consumer:   "worker-1",
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
			Consumer:   "casestrainer-worker",
			MaxRetries: cfg.Queue.MaxRetries,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize NATS queue: %v", err)
		}
		logger.Info("Using NATS queue")
	default:
		logger.Fatalf("Unsupported queue driver: %s", cfg.Queue.Driver)
	}
	defer q.Close()

	backend, err := cache.NewCache(&cache.Config{
		Type:    cfg.Cache.Driver,
		TTL:     cfg.Cache.TTL,
		MaxKeys: cfg.Cache.MaxKeys,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize cache backend: %v", err)
	}
	vc := cache.NewVerificationCache(backend)

	db := citationdb.NewHTTPClient(cfg.Verifier.BaseURL, cfg.Verifier.APIKey, cfg.Verifier.HTTPTimeout)
	verifier := verify.New(db, vc, cfg.Verifier, metrics)
	loader := docloader.New(cfg.Verifier.HTTPTimeout)

	runtime := jobs.New(store, q, vc, loader, verifier, cfg.Worker.JobTimeout, cfg.Worker.StageWatchdog, logger, metrics)

	pool := worker.NewPool(worker.PoolConfig{
		WorkerCount:   cfg.Worker.Concurrency,
		JobTimeout:    cfg.Worker.JobTimeout,
		ShutdownGrace: cfg.Worker.ShutdownGrace,
	}, q, runtime.Handler)

	if err := pool.Start(cfg.Worker.Concurrency); err != nil {
		logger.Fatalf("Failed to start worker pool: %v", err)
	}
	logger.Infof("Worker pool started with %d workers", cfg.Worker.Concurrency)

	if cfg.Observability.MetricsEnabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			addr := fmt.Sprintf(":%d", cfg.Observability.MetricsPort)
			logger.Infof("Starting metrics server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	logger.Info("Shutting down worker pool...")
	if err := pool.Stop(cfg.Worker.ShutdownGrace); err != nil {
		logger.Errorf("Error during worker pool shutdown: %v", err)
	}

	logger.Info("CaseStrainer worker shutdown complete")
}
