// Package notification 订单事件通知
//
// 通知是"尽力而为"的：发送失败只记录日志，不影响订单操作结果。
package notification

import (
	"context"
	"time"
)

// EventType 事件类型，同时作为消息的routing key
type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventOrderAccepted  EventType = "order.accepted"
	EventOrderCancelled EventType = "order.cancelled"
	EventOrderRefunded  EventType = "order.refunded"
	EventPaymentReceipt EventType = "payment.receipt"
)

// Event 订单事件消息体
type Event struct {
	Type         EventType `json:"type"`
	OrderID      uint      `json:"order_id"`
	OrderNo      string    `json:"order_no"`
	BuyerID      uint      `json:"buyer_id"`
	TotalPrice   int64     `json:"total_price"`
	RefundAmount int64     `json:"refund_amount,omitempty"`
	PaymentNo    string    `json:"payment_no,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier 订单通知接口
// 实现方不得阻塞调用方，也不返回错误。
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Nop 不发送任何通知
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
