package redis

import (
	"context"
	"fmt"

	"healthguard/common/config"

	"github.com/go-redis/redis/v8"
)

// Client is re-exported so services only import this package.
type Client = redis.Client

// NewRedisClient creates a client and verifies the connection.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
