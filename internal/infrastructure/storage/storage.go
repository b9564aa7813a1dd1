package storage

import (
	"context"
	"fmt"
	"strings"

	"HNFilter/internal/config"
	"HNFilter/internal/ports"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Repository is an ArticleRepository that owns a connection.
type Repository interface {
	ports.ArticleRepository
	Close() error
}

// Open builds the repository selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Repository, error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", DriverSQLite:
		return OpenSQL(ctx, DriverSQLite, cfg.DSN)
	case DriverPostgres:
		return OpenSQL(ctx, DriverPostgres, cfg.DSN)
	case DriverRedis:
		repo := NewRedisRepository(cfg.RedisAddr)
		if err := repo.Ping(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return repo, nil
	case DriverMemory:
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
