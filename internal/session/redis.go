package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"backoffice/internal/config"
)

// NewRedisClient builds the session-store client from configuration. The
// caller owns the lifecycle and must Close it on shutdown.
//
// 连接探测失败时仍返回可用的客户端和对应错误，由调用方决定是降级运行
// 还是中止启动。
func NewRedisClient(cfg config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB >= 0 {
		opts.DB = cfg.RedisDB
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return client, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
