package persist

import (
	"context"
	"fmt"

	"github.com/alecgard/clawdeck/internal/config"
)

// Open returns the backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return NewFileBackend(cfg.Storage.Path)
	case config.BackendSQLite:
		return NewSQLiteBackend(ctx, cfg.Storage.Path)
	case config.BackendPostgres:
		return NewPostgresBackend(ctx, cfg.Database.URL)
	case config.BackendRedis:
		return NewRedisBackend(ctx, RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
	case config.BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
