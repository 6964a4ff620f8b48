// Package retry 有界重试执行器
//
// 默认策略：最多3次，失败后立即重试，不区分错误类型。
// 可选：抖动指数退避（Jitter）、通过IsRetryable把某些错误标记为不可重试。
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxAttempts 默认最大尝试次数（含第一次）
const DefaultMaxAttempts = 3

// Config 重试配置
type Config struct {
	// MaxAttempts 最大尝试次数，<=0时使用默认值3
	MaxAttempts int

	// Jitter 为true时使用带随机抖动的指数退避，否则立即重试
	Jitter          bool
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// IsRetryable 返回false的错误立即结束重试，为nil时所有错误都重试
	IsRetryable func(err error) bool

	// OnRetry 每次失败且还会继续重试时回调
	OnRetry func(attempt int, err error, next time.Duration)
}

// Executor 重试执行器
type Executor struct {
	cfg Config
}

// New 创建重试执行器
func New(cfg Config) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = time.Second
	}
	return &Executor{cfg: cfg}
}

// MaxAttempts 最大尝试次数
func (e *Executor) MaxAttempts() int {
	return e.cfg.MaxAttempts
}

// Do 执行op，直到成功、遇到不可重试错误或次数用完
// 返回实际尝试次数和最后一次的错误。
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	attempts := 0
	operation := func() error {
		attempts++
		err := op(ctx)
		if err != nil && e.cfg.IsRetryable != nil && !e.cfg.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		if e.cfg.OnRetry != nil {
			e.cfg.OnRetry(attempts, err, next)
		}
	}

	err := backoff.RetryNotify(operation, e.policy(ctx), notify)
	return attempts, err
}

func (e *Executor) policy(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if e.cfg.Jitter {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = e.cfg.InitialInterval
		eb.MaxInterval = e.cfg.MaxInterval
		eb.RandomizationFactor = 0.5
		eb.MaxElapsedTime = 0
		b = eb
	}
	b = backoff.WithMaxRetries(b, uint64(e.cfg.MaxAttempts-1))
	return backoff.WithContext(b, ctx)
}
