package payment

import (
	"time"
)

// Status 支付记录状态
type Status int

const (
	StatusPending  Status = 1
	StatusSuccess  Status = 2
	StatusFailed   Status = 3
	StatusRefunded Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// Payment 支付记录
// 一个订单最多只有一条非失败的支付记录，Amount等于订单总价。
type Payment struct {
	ID         uint
	PaymentNo  string
	OrderID    uint
	Amount     int64 // 单位:分
	Status     Status
	GatewayRef string // 网关返回的交易流水号
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewSuccessPayment 网关扣款成功后生成支付记录
func NewSuccessPayment(paymentNo string, orderID uint, amount int64, gatewayRef string, now time.Time) *Payment {
	return &Payment{
		PaymentNo:  paymentNo,
		OrderID:    orderID,
		Amount:     amount,
		Status:     StatusSuccess,
		GatewayRef: gatewayRef,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkFailed 订单保存失败时回滚支付记录
func (p *Payment) MarkFailed(now time.Time) {
	p.Status = StatusFailed
	p.UpdatedAt = now
}

// MarkRefunded 退款取消后标记
func (p *Payment) MarkRefunded(now time.Time) error {
	if p.Status != StatusSuccess {
		return ErrNotRefundable
	}
	p.Status = StatusRefunded
	p.UpdatedAt = now
	return nil
}

// RevertRefund 撤销退款标记（退款流程后续步骤失败时补偿）
func (p *Payment) RevertRefund(now time.Time) {
	if p.Status == StatusRefunded {
		p.Status = StatusSuccess
		p.UpdatedAt = now
	}
}
