package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/fastorder/internal/domain/order"
	apperrors "github.com/xiebiao/fastorder/pkg/errors"
	"github.com/xiebiao/fastorder/pkg/logger"
)

// ErrLockTimeout 等待订单锁超时
var ErrLockTimeout = apperrors.New(apperrors.ErrCodeConcurrentUpdate, "订单正在处理中，请稍后重试")

// unlockScript 只删除自己持有的锁
// KEYS[1]=锁key ARGV[1]=持有者token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// OrderLocker 基于Redis的分布式订单锁
// 1. SET lock:order:{id} {token} NX PX ttl 加锁
// 2. 释放时用Lua脚本比对token，避免误删别人的锁
// 3. ttl兜底：持有者崩溃后锁自动过期
type OrderLocker struct {
	client       *redis.Client
	ttl          time.Duration
	wait         time.Duration
	pollInterval time.Duration
}

// NewOrderLocker 创建分布式订单锁
func NewOrderLocker(client *redis.Client, ttl, wait time.Duration) *OrderLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &OrderLocker{
		client:       client,
		ttl:          ttl,
		wait:         wait,
		pollInterval: 20 * time.Millisecond,
	}
}

var _ order.Locker = (*OrderLocker)(nil)

// Lock 获取订单锁，最多等待wait
func (l *OrderLocker) Lock(ctx context.Context, orderID uint) (func(), error) {
	key := fmt.Sprintf("lock:order:%d", orderID)
	token, err := newToken()
	if err != nil {
		return nil, apperrors.Wrap(err, "生成锁标识失败")
	}

	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, apperrors.WithCause(apperrors.ErrRedisError, err)
		}
		if ok {
			return l.unlocker(ctx, key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}

func (l *OrderLocker) unlocker(ctx context.Context, key, token string) func() {
	// 请求取消后也要能释放锁
	releaseCtx := context.WithoutCancel(ctx)
	return func() {
		if err := unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("释放订单锁失败，等待过期")
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
