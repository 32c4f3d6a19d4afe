// Package backend opens the configured storage and read cache.
package backend

import (
	"context"
	"fmt"
	"log"
	"time"

	"profitradar/internal/cache"
	"profitradar/internal/config"
	"profitradar/internal/database"
	"profitradar/internal/mongostore"
	"profitradar/internal/store"
)

// Backend is a store that can also report health and keep migration metadata
type Backend interface {
	store.Store
	Ping(ctx context.Context) error
	MigrationStatus(ctx context.Context, key string) (string, error)
	SetMigrationStatus(ctx context.Context, key, value string) error
}

var (
	_ Backend = (*database.Database)(nil)
	_ Backend = (*mongostore.Store)(nil)
)

const connectTimeout = 15 * time.Second

// Open connects to the store named by cfg.StoreBackend
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		s, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			s.Close(context.Background())
			return nil, err
		}
		log.Printf("[INFO] Connected to MongoDB database %s", cfg.MongoDB)
		return s, nil

	case config.BackendSQLite:
		db, err := database.NewDatabase(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("[INFO] Using SQLite database at %s", cfg.SQLitePath)
		return db, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// OpenCache returns a Redis cache when REDIS_ADDR is set and reachable,
// otherwise a file cache under cfg.CacheDir. The returned func releases it.
func OpenCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err == nil {
			log.Printf("[INFO] Using Redis cache at %s", cfg.RedisAddr)
			return rc, func() { rc.Close() }, nil
		}
		log.Printf("[WARN] Redis at %s unreachable (%v), falling back to file cache", cfg.RedisAddr, err)
		rc.Close()
	}

	fc, err := cache.NewFileCache(cfg.CacheDir, cfg.CacheTTL)
	if err != nil {
		return nil, nil, err
	}
	return fc, func() {}, nil
}
