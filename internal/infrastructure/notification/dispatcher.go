// Package notification 订单事件通知的投递实现
//
// Dispatcher异步发送事件，发送失败只记录日志和指标，不影响订单操作。
// 传输方式可选RabbitMQ（pkg/mq）、Kafka或仅写日志。
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/xiebiao/fastorder/internal/domain/notification"
	"github.com/xiebiao/fastorder/pkg/logger"
	"github.com/xiebiao/fastorder/pkg/metrics"
)

// Publisher 消息发布者，routingKey即事件类型
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
	Close() error
}

// Dispatcher 异步通知分发器
// Close之后到达的事件直接丢弃，mu保证wg.Add不会与Close中的wg.Wait并发。
type Dispatcher struct {
	publisher Publisher
	timeout   time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ notification.Notifier = (*Dispatcher)(nil)

// NewDispatcher 创建分发器，timeout为单条消息的发送超时
func NewDispatcher(publisher Publisher, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Dispatcher{publisher: publisher, timeout: timeout}
}

// Notify 异步发送，立即返回
// 发送使用脱离请求取消信号的context，请求结束后消息仍会发出。
func (d *Dispatcher) Notify(ctx context.Context, event notification.Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		metrics.RecordNotification(string(event.Type), "dropped")
		logger.Ctx(ctx).Warn().
			Str("event", string(event.Type)).
			Uint("order_id", event.OrderID).
			Msg("通知分发器已关闭，丢弃事件")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.publisher.Publish(sendCtx, string(event.Type), event); err != nil {
			metrics.RecordNotification(string(event.Type), "failed")
			logger.Ctx(ctx).Warn().
				Err(err).
				Str("event", string(event.Type)).
				Uint("order_id", event.OrderID).
				Msg("订单通知发送失败")
			return
		}
		metrics.RecordNotification(string(event.Type), "sent")
	}()
}

// Close 等待在途消息发送完毕后关闭发布者，重复调用直接返回nil
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	return d.publisher.Close()
}
