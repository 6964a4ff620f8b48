package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/xiebiao/fastorder/internal/domain/notification"
	"github.com/xiebiao/fastorder/pkg/logger"
	"github.com/xiebiao/fastorder/pkg/metrics"
)

// Message 渲染后的通知内容
type Message struct {
	Subject string
	Body    string
}

// Render 事件 → 通知文案
func Render(e notification.Event) (Message, error) {
	switch e.Type {
	case notification.EventOrderCreated:
		return Message{
			Subject: "下单成功",
			Body: fmt.Sprintf("订单%s已提交，金额%s元。已支付订单24小时内取消退还90%%，24~48小时退还25%%，超过48小时不可取消。",
				e.OrderNo, yuan(e.TotalPrice)),
		}, nil
	case notification.EventOrderAccepted:
		return Message{
			Subject: "订单已接单",
			Body:    fmt.Sprintf("订单%s已被接单，请尽快完成支付。", e.OrderNo),
		}, nil
	case notification.EventOrderCancelled:
		return Message{
			Subject: "订单已取消",
			Body:    fmt.Sprintf("订单%s已取消。", e.OrderNo),
		}, nil
	case notification.EventOrderRefunded:
		return Message{
			Subject: "订单已取消并退款",
			Body:    fmt.Sprintf("订单%s已取消，退款%s元将原路退回。", e.OrderNo, yuan(e.RefundAmount)),
		}, nil
	case notification.EventPaymentReceipt:
		return Message{
			Subject: "支付凭证",
			Body: fmt.Sprintf("订单%s支付成功，支付单号%s，金额%s元，支付时间%s。",
				e.OrderNo, e.PaymentNo, yuan(e.TotalPrice), e.OccurredAt.Format("2006-01-02 15:04:05")),
		}, nil
	default:
		return Message{}, fmt.Errorf("未知的事件类型: %s", e.Type)
	}
}

func yuan(fen int64) string {
	return fmt.Sprintf("%d.%02d", fen/100, fen%100)
}

// HandleEvent 消费一条订单事件：解码、渲染并写日志
// 格式错误的消息直接丢弃，避免重新入队后反复失败。
func HandleEvent(ctx context.Context, routingKey string, body []byte) error {
	log := logger.Ctx(ctx)

	var event notification.Event
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("丢弃无法解析的通知消息")
		return nil
	}

	msg, err := Render(event)
	if err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("丢弃未知类型的通知消息")
		return nil
	}

	log.Info().
		Str("event", string(event.Type)).
		Str("order_no", event.OrderNo).
		Uint("buyer_id", event.BuyerID).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("通知已发送")
	return nil
}

// ConsumeKafka 从Kafka消费订单事件，直到ctx取消
func ConsumeKafka(ctx context.Context, brokers []string, topic, groupID string) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	defer reader.Close()

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("读取Kafka消息失败: %w", err)
		}

		if err := HandleEvent(ctx, string(m.Key), m.Value); err != nil {
			metrics.RecordMessageConsumed(topic, "failure")
			continue
		}
		metrics.RecordMessageConsumed(topic, "success")
	}
}
