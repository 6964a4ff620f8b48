package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/xiebiao/fastorder/internal/infrastructure/config"
)

// NewClient 创建Redis客户端
// 1. 配置连接池参数（PoolSize、MinIdleConns）
// 2. 配置超时参数（DialTimeout、ReadTimeout、WriteTimeout）
// 3. 测试连接可用性
func NewClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	log.Info().Str("addr", cfg.Redis.Addr()).Msg("Redis连接成功")
	return client, nil
}
