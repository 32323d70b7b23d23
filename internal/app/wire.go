// Package app wires config into the long lived clients shared by the
// server and the job runner.
package app

import (
	"context"

	"noizlabs/internal/config"
	"noizlabs/internal/logger"
	"noizlabs/internal/storage"

	redis "github.com/redis/go-redis/v9"
)

func Redis(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed", "addr", cfg.RedisAddr, "error", err)
	}
	return rdb
}

// Blobs returns the S3 store, or an in-memory one when no bucket is set.
func Blobs(ctx context.Context, cfg *config.Config) storage.BlobStore {
	if cfg.S3Bucket == "" {
		logger.Warn("S3_BUCKET is not set, clips are kept in memory")
		return storage.NewMemory(cfg.CDNBaseURL)
	}
	s, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		PublicBaseURL:   cfg.CDNBaseURL,
	})
	if err != nil {
		logger.Fatal("failed to init object storage", "error", err)
	}
	return s
}
