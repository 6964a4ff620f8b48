package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/xiebiao/fastorder/pkg/metrics"
)

// KafkaPublisher 通过Kafka发送订单事件
// 消息Key为事件类型，Header中携带事件类型和链路追踪上下文。
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher 创建Kafka发布者
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish 以JSON格式发送消息
func (p *KafkaPublisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("消息序列化失败: %w", err)
	}

	msg := kafka.Message{
		Key:     []byte(routingKey),
		Value:   body,
		Time:    time.Now().UTC(),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(routingKey)}},
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发送Kafka消息失败: %w", err)
	}
	metrics.RecordMessagePublished("kafka", p.writer.Topic)
	return nil
}

// Close 关闭writer，刷出缓冲中的消息
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// headerCarrier 让otel传播器读写kafka消息头
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
