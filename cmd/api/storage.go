package main

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/config"
	"github.com/hamed0406/uptimewatch/internal/repo"
	"github.com/hamed0406/uptimewatch/internal/repo/file"
	"github.com/hamed0406/uptimewatch/internal/repo/memory"
	"github.com/hamed0406/uptimewatch/internal/repo/postgres"
	"github.com/hamed0406/uptimewatch/internal/repo/redis"
)

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.Store, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("storage_memory", zap.String("hint", "state is lost on restart"))
		return memory.New(), nil
	case config.StoragePostgres:
		return postgres.New(ctx, cfg.DatabaseURL, logger)
	case config.StorageRedis:
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, err
		}
		return redis.New(client, ""), nil
	case config.StorageFile:
		servicesFile := cfg.ServicesFile
		if servicesFile == "" {
			servicesFile = filepath.Join(cfg.DataDir, "services.json")
		}
		logger.Info("storage_file", zap.String("dir", cfg.DataDir), zap.String("services", servicesFile))
		return file.New(cfg.DataDir, servicesFile)
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}
