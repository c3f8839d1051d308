package kvstore

import (
	"fmt"

	"github.com/casestrainer/casestrainer/internal/config"
)

// New builds a Store from the given driver configuration.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory", "":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.DSN)
	case "postgres":
		return NewPostgresStore(cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime)
	case "mongo":
		return NewMongoStore(cfg.DSN, "casestrainer")
	default:
		return nil, fmt.Errorf("kvstore: unknown driver %q", cfg.Driver)
	}
}
