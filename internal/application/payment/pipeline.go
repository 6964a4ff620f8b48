// Package payment 支付执行管道
//
// 调用链：Retry( CircuitBreaker( Gateway ) )
//
// 重试在熔断器外层，熔断器打开后的重试会立即拿到ErrOpenState，
// 不会触达网关。默认配置下三次尝试全部失败才算失败。
package payment

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xiebiao/fastorder/internal/domain/payment"
	"github.com/xiebiao/fastorder/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/fastorder/pkg/errors"
	"github.com/xiebiao/fastorder/pkg/logger"
	"github.com/xiebiao/fastorder/pkg/metrics"
	"github.com/xiebiao/fastorder/pkg/retry"
	"github.com/xiebiao/fastorder/pkg/tracing"
)

const tracerName = "payment"

// Options 管道配置
type Options struct {
	MaxAttempts int

	// RetryOnOpen 熔断器打开时是否仍然重试（默认true，与不区分错误类型的行为一致）
	RetryOnOpen bool

	// Jitter 使用抖动指数退避代替立即重试
	Jitter bool
}

// DefaultOptions 默认配置：3次立即重试，熔断时也重试
func DefaultOptions() Options {
	return Options{
		MaxAttempts: retry.DefaultMaxAttempts,
		RetryOnOpen: true,
	}
}

// Pipeline 支付执行管道
type Pipeline struct {
	gateway payment.Gateway
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Executor
}

// NewPipeline 创建支付管道
// breaker由调用方注入，便于多个管道共享或测试时单独构造。
func NewPipeline(gateway payment.Gateway, breaker *circuitbreaker.CircuitBreaker, opts Options) *Pipeline {
	cfg := retry.Config{
		MaxAttempts: opts.MaxAttempts,
		Jitter:      opts.Jitter,
	}
	if !opts.RetryOnOpen {
		cfg.IsRetryable = func(err error) bool {
			return !errors.Is(err, circuitbreaker.ErrOpenState)
		}
	}
	return &Pipeline{
		gateway: gateway,
		breaker: breaker,
		retrier: retry.New(cfg),
	}
}

// NewGatewayBreaker 创建网关熔断器，状态变化写日志并更新指标
func NewGatewayBreaker(name string, cfg circuitbreaker.Config) *circuitbreaker.CircuitBreaker {
	onChange := cfg.OnStateChange
	cfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		metrics.SetCircuitBreakerState(name, int(to), to.String())
		logger.Ctx(context.Background()).Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("熔断器状态变化")
		if onChange != nil {
			onChange(name, from, to)
		}
	}
	return circuitbreaker.NewCircuitBreaker(name, cfg)
}

// Execute 执行一次支付
//
// 返回：
// - 成功：网关结果
// - 最后一次失败是熔断打开：ErrPaymentUnavailable
// - 其他失败：ErrPaymentFailed（Err字段保留最后一次的错误）
func (p *Pipeline) Execute(ctx context.Context, req payment.ChargeRequest) (result payment.ChargeResult, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, "payment.Pipeline",
		trace.WithAttributes(
			attribute.Int64("order.id", int64(req.OrderID)),
			attribute.Int64("payment.amount", req.Amount),
		))
	defer func() {
		metrics.ObservePaymentPipeline(pipelineResult(err), time.Since(start).Seconds())
		tracing.EndSpan(span, err)
	}()

	log := logger.Ctx(ctx)
	attempts, lastErr := p.retrier.Do(ctx, func(ctx context.Context) error {
		return p.breaker.Execute(func() error {
			res, err := p.charge(ctx, req)
			if err == nil {
				result = res
			}
			return err
		})
	})
	span.SetAttributes(attribute.Int("payment.attempts", attempts))

	if lastErr == nil {
		log.Info().Uint("order_id", req.OrderID).Int("attempts", attempts).Msg("支付成功")
		return result, nil
	}

	if errors.Is(lastErr, circuitbreaker.ErrOpenState) {
		log.Warn().Uint("order_id", req.OrderID).Int("attempts", attempts).Msg("支付网关熔断中")
		return payment.ChargeResult{}, apperrors.WithCause(payment.ErrPaymentUnavailable, lastErr)
	}

	log.Warn().Err(lastErr).Uint("order_id", req.OrderID).Int("attempts", attempts).Msg("支付失败")
	return payment.ChargeResult{}, apperrors.WithCause(payment.ErrPaymentFailed, lastErr)
}

func (p *Pipeline) charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "gateway.Charge")
	res, err := p.gateway.Charge(ctx, req)
	if err != nil {
		metrics.RecordGatewayCall("failure")
	} else {
		metrics.RecordGatewayCall("success")
	}
	tracing.EndSpan(span, err)
	return res, err
}

func pipelineResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, payment.ErrPaymentUnavailable):
		return "unavailable"
	default:
		return "failed"
	}
}
