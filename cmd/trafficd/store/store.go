// Package store selects the snapshot storage backend from configuration.
package store

import (
	"log/slog"
	"os"
	"time"

	"github.com/citygrid/trafficpulse/cmd/trafficd/config"
	"github.com/citygrid/trafficpulse/pkg/storage"
)

// New creates the configured snapshot store. A Redis connection failure is
// fatal: storage is part of startup configuration.
func New(cfg *config.Config, logger *slog.Logger) storage.Store {
	switch cfg.Storage {
	case "redis":
		logger.Info("using redis snapshot store", "addr", cfg.RedisAddr, "ttl", cfg.RedisTTL)
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		return s

	default:
		logger.Info("using in-memory snapshot store")
		return storage.NewMemoryStoreWithTTL(30*time.Minute, time.Minute)
	}
}
