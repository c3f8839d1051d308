package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Store         StoreConfig         `mapstructure:"store"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Verifier      VerifierConfig      `mapstructure:"verifier"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig holds KeyValueStore (job persistence) configuration.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"` // memory, sqlite, postgres, mongo
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration, used by the Redis-backed queue
// driver; there is no Redis KeyValueStore driver.
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueueConfig holds job queue configuration
type QueueConfig struct {
	Driver     string        `mapstructure:"driver"` // nats, redis, memory
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	Concurrency        int           `mapstructure:"concurrency"`
	JobTimeout         time.Duration `mapstructure:"job_timeout"`
	StageWatchdog      time.Duration `mapstructure:"stage_watchdog"`
	ClaimVisibility    time.Duration `mapstructure:"claim_visibility"`
	MaxClaimRetries    int           `mapstructure:"max_claim_retries"`
	ShutdownGrace      time.Duration `mapstructure:"shutdown_grace"`
}

// VerifierConfig holds the CitationDatabase client's retry, rate-limit and
// circuit-breaker policy (§4.5).
type VerifierConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	RateLimitPerHour int           `mapstructure:"rate_limit_per_hour"`
	Burst            int           `mapstructure:"burst"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay    time.Duration `mapstructure:"retry_max_delay"`
	RetryMaxAttempts int           `mapstructure:"retry_max_attempts"`
}

// CacheConfig holds the Cache Layer's (§4.7) backend selection.
type CacheConfig struct {
	Driver  string        `mapstructure:"driver"` // memory, redis, multilevel
	TTL     time.Duration `mapstructure:"ttl"`
	MaxKeys int           `mapstructure:"max_keys"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"` // json, text
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MetricsPort    int    `mapstructure:"metrics_port"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CASESTRAINER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A handful of env vars are named directly by the spec's external
	// interface rather than under the CASESTRAINER_ prefix; bind them
	// explicitly so deployments can set them as documented.
	_ = v.BindEnv("verifier.api_key", "DATABASE_API_KEY")
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
	_ = v.BindEnv("verifier.rate_limit_per_hour", "RATE_LIMIT_PER_HOUR")
	if s := os.Getenv("JOB_TIMEOUT_SECONDS"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil {
			v.Set("worker.job_timeout", time.Duration(secs)*time.Second)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "casestrainer.db")
	v.SetDefault("store.max_open_conns", 25)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", "5m")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.db", 0)

	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.max_retries", 2)
	v.SetDefault("queue.retry_delay", "5s")

	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.job_timeout", "20m")
	v.SetDefault("worker.stage_watchdog", "120s")
	v.SetDefault("worker.claim_visibility", "10m")
	v.SetDefault("worker.max_claim_retries", 2)
	v.SetDefault("worker.shutdown_grace", "30s")

	v.SetDefault("verifier.base_url", "https://citations.example.invalid")
	v.SetDefault("verifier.rate_limit_per_hour", 3600)
	v.SetDefault("verifier.burst", 5)
	v.SetDefault("verifier.http_timeout", "30s")
	v.SetDefault("verifier.retry_base_delay", "500ms")
	v.SetDefault("verifier.retry_max_delay", "8s")
	v.SetDefault("verifier.retry_max_attempts", 4)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", "168h")
	v.SetDefault("cache.max_keys", 100000)

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.metrics_port", 9091)
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Worker.Concurrency < 1 {
		return fmt.Errorf("worker concurrency must be at least 1")
	}

	if cfg.Verifier.RateLimitPerHour < 1 {
		return fmt.Errorf("verifier rate limit must be at least 1 per hour")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[cfg.Observability.LogLevel] {
		return fmt.Errorf("invalid log level: %s", cfg.Observability.LogLevel)
	}

	return nil
}
