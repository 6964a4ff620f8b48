package notification

import (
	"context"

	"github.com/xiebiao/fastorder/pkg/logger"
)

// LogPublisher 只写日志，不依赖消息中间件（本地开发）
type LogPublisher struct{}

// NewLogPublisher 创建日志发布者
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (LogPublisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	logger.Ctx(ctx).Info().
		Str("routing_key", routingKey).
		Interface("event", message).
		Msg("订单通知")
	return nil
}

func (LogPublisher) Close() error {
	return nil
}
