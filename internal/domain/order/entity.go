package order

import (
	"time"
)

// Status 订单状态
type Status int

const (
	StatusPending   Status = 1 // 待接单
	StatusAccepted  Status = 2 // 已接单
	StatusCancelled Status = 3 // 已取消（终态）
)

// String 状态名称（API输出使用）
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// PaymentStatus 支付状态，与订单状态正交
type PaymentStatus int

const (
	PaymentPending  PaymentStatus = 1
	PaymentSuccess  PaymentStatus = 2
	PaymentFailed   PaymentStatus = 3
	PaymentRefunded PaymentStatus = 4
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentPending:
		return "pending"
	case PaymentSuccess:
		return "success"
	case PaymentFailed:
		return "failed"
	case PaymentRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// transitions 合法的订单状态迁移
//
//	pending  → accepted | cancelled
//	accepted → cancelled
//	cancelled 为终态
var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusCancelled},
	StatusAccepted: {StatusCancelled},
}

// Order 订单聚合根（一个订单只对应一个商品行）
//
// 不变量：
// 1. TotalPrice在创建时按单价×数量计算，之后不再重算
// 2. PaymentStatus只有在Status=accepted时才能变为success
// 3. cancelled是终态
//
// UpdatedAt只在订单状态变化时更新（创建、接单、取消），
// 支付不会改动它，退款时限以它为起点计算。
type Order struct {
	ID            uint
	OrderNo       string
	BuyerID       uint
	ProductID     uint
	Quantity      int
	TotalPrice    int64 // 单位:分
	Status        Status
	PaymentStatus PaymentStatus
	RefundAmount  *int64 // 仅退款取消时设置
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PaidAt        *time.Time
	RefundedAt    *time.Time
	Version       int // 乐观锁版本号，每次保存+1
}

// NewOrder 创建订单（工厂方法）
func NewOrder(orderNo string, buyerID, productID uint, quantity int, unitPrice int64, now time.Time) (*Order, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &Order{
		OrderNo:       orderNo,
		BuyerID:       buyerID,
		ProductID:     productID,
		Quantity:      quantity,
		TotalPrice:    unitPrice * int64(quantity),
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CanTransitionTo 是否允许迁移到目标状态
func (o *Order) CanTransitionTo(target Status) bool {
	for _, s := range transitions[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

func (o *Order) transitionTo(target Status, now time.Time) error {
	if !o.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	o.Status = target
	o.UpdatedAt = now
	return nil
}

// Accept 接单
func (o *Order) Accept(now time.Time) error {
	return o.transitionTo(StatusAccepted, now)
}

// CheckPayable 校验订单能否发起支付
// 已接单且未支付才能支付；已取消或待接单返回ErrInvalidTransition。
func (o *Order) CheckPayable() error {
	if o.Status != StatusAccepted {
		return ErrInvalidTransition
	}
	if o.PaymentStatus == PaymentSuccess {
		return ErrAlreadyPaid
	}
	return nil
}

// MarkPaid 记录支付成功
func (o *Order) MarkPaid(now time.Time) error {
	if err := o.CheckPayable(); err != nil {
		return err
	}
	o.PaymentStatus = PaymentSuccess
	paidAt := now
	o.PaidAt = &paidAt
	return nil
}

// IsPaid 是否已支付成功
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentSuccess
}

// IsTerminal 是否处于终态
func (o *Order) IsTerminal() bool {
	return o.Status == StatusCancelled
}

// Cancel 未支付订单直接取消，支付状态保持不变
func (o *Order) Cancel(now time.Time) error {
	if o.IsPaid() {
		return ErrInvalidTransition
	}
	return o.transitionTo(StatusCancelled, now)
}

// Refund 已支付订单退款取消
func (o *Order) Refund(amount int64, now time.Time) error {
	if !o.IsPaid() {
		return ErrInvalidTransition
	}
	if err := o.transitionTo(StatusCancelled, now); err != nil {
		return err
	}
	o.PaymentStatus = PaymentRefunded
	refundAmount := amount
	refundedAt := now
	o.RefundAmount = &refundAmount
	o.RefundedAt = &refundedAt
	return nil
}

// HoursSinceUpdate 距上次状态变化的整小时数（向下取整，不小于0）
func (o *Order) HoursSinceUpdate(now time.Time) int {
	elapsed := now.Sub(o.UpdatedAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / time.Hour)
}

// IsOwnedBy 是否为该买家的订单
func (o *Order) IsOwnedBy(buyerID uint) bool {
	return o.BuyerID == buyerID
}
