// Package mq RabbitMQ发布/订阅封装（amqp091-go）
//
// 订单事件使用topic类型的Exchange，路由键形如 order.created、order.refunded，
// 消费者可以用 order.* 订阅全部订单事件。
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xiebiao/fastorder/pkg/logger"
	"github.com/xiebiao/fastorder/pkg/metrics"
)

// Publisher 消息发布者
type Publisher struct {
	mu       sync.Mutex // amqp.Channel不支持并发发布
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// dial 建立连接、打开Channel并声明持久化Exchange
func dial(url, exchange, exchangeType string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		exchangeType,
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("声明Exchange失败: %w", err)
	}
	return conn, channel, nil
}

// NewPublisher 创建发布者
func NewPublisher(url, exchange, exchangeType string) (*Publisher, error) {
	conn, channel, err := dial(url, exchange, exchangeType)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

// Publish 以JSON格式发布持久化消息
func (p *Publisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("消息序列化失败: %w", err)
	}

	p.mu.Lock()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	metrics.RecordMessagePublished("rabbitmq", p.exchange)
	logger.Ctx(ctx).Debug().
		Str("exchange", p.exchange).
		Str("routing_key", routingKey).
		Msg("消息已发布")
	return nil
}

// Close 关闭Channel和连接
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Handler 消息处理函数，返回错误时消息重新入队
type Handler func(ctx context.Context, routingKey string, body []byte) error

// Consumer 消息消费者
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewConsumer 创建消费者，声明持久化队列并按routingKeys绑定到Exchange
func NewConsumer(url, exchange, exchangeType, queue string, routingKeys []string) (*Consumer, error) {
	conn, channel, err := dial(url, exchange, exchangeType)
	if err != nil {
		return nil, err
	}

	q, err := channel.QueueDeclare(
		queue,
		true,  // Durable
		false, // AutoDelete
		false, // Exclusive
		false, // NoWait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("声明Queue失败: %w", err)
	}

	for _, routingKey := range routingKeys {
		if err := channel.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("绑定Queue失败: %w", err)
		}
	}

	return &Consumer{
		conn:    conn,
		channel: channel,
		queue:   q.Name,
	}, nil
}

// Consume 阻塞消费，直到ctx取消
// 手动确认：处理成功Ack，失败Nack并重新入队。
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("设置Qos失败: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queue,
		"",    // Consumer标签
		false, // AutoAck
		false, // Exclusive
		false, // NoLocal
		false, // NoWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("开始消费失败: %w", err)
	}

	log := logger.Ctx(ctx).With().Str("queue", c.queue).Logger()
	log.Info().Msg("开始消费消息")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("消费者退出")
			return nil

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("消息Channel已关闭")
			}

			if err := handler(ctx, msg.RoutingKey, msg.Body); err != nil {
				log.Warn().Err(err).Str("routing_key", msg.RoutingKey).Msg("消息处理失败，重新入队")
				metrics.RecordMessageConsumed(c.queue, "failure")
				_ = msg.Nack(false, true)
				continue
			}
			metrics.RecordMessageConsumed(c.queue, "success")
			_ = msg.Ack(false)
		}
	}
}

// Close 关闭Channel和连接
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
