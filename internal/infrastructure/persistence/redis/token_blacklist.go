package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/fastorder/pkg/errors"
)

// TokenBlacklist JWT黑名单
// JWT是无状态的，服务端通过黑名单让Token提前失效（登出、泄露、强制下线）。
// Key：blacklist:{token}，过期时间与Access Token剩余有效期一致。
type TokenBlacklist struct {
	client *redis.Client
}

// NewTokenBlacklist 创建Token黑名单
func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

// Add 将Token加入黑名单
func (b *TokenBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if err := b.client.Set(ctx, blacklistKey(token), "revoked", ttl).Err(); err != nil {
		return apperrors.Wrap(err, "添加Token到黑名单失败")
	}
	return nil
}

// Contains 检查Token是否在黑名单中
func (b *TokenBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	exists, err := b.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "检查黑名单失败")
	}
	return exists > 0, nil
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}
