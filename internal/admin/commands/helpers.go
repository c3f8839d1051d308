package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/casestrainer/casestrainer/internal/cache"
	"github.com/casestrainer/casestrainer/internal/config"
	"github.com/casestrainer/casestrainer/internal/kvstore"
	"github.com/casestrainer/casestrainer/internal/queue"
)

// Helper functions

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if verbose {
		fmt.Printf("Loading config from: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

func initStore(cfg *config.Config) (kvstore.Store, error) {
	store, err := kvstore.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize job store: %w", err)
	}

	return store, nil
}

// initQueue connects to the configured queue transport. The memory driver
// is refused here: it only ever holds jobs enqueued by the same process,
// so an admin CLI instance of it is always empty and not worth inspecting.
func initQueue(cfg *config.Config) (queue.Queue, error) {
	switch cfg.Queue.Driver {
	case "redis":
		return queue.NewRedisQueue(&queue.RedisQueueConfig{
			Addr:       cfg.Redis.URL,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			Stream:     "casestrainer:jobs",
			Group:      "casestrainer-workers",
			Consumer:   "admin-cli",
			MaxRetries: cfg.Queue.MaxRetries,
		})
	case "nats":
		return queue.NewNATSQueue(&queue.NATSQueueConfig{
			URL:        cfg.Queue.URL,
			Stream:     "CASESTRAINER_JOBS",
			Consumer:   "casestrainer-admin",
			MaxRetries: cfg.Queue.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("queue metrics are not available for driver %q", cfg.Queue.Driver)
	}
}

func initCache(cfg *config.Config) (*cache.VerificationCache, error) {
	backend, err := cache.NewCache(&cache.Config{
		Type:    cfg.Cache.Driver,
		TTL:     cfg.Cache.TTL,
		MaxKeys: cfg.Cache.MaxKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	return cache.NewVerificationCache(backend), nil
}
