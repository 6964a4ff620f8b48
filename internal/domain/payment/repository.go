package payment

import (
	"context"
)

// Repository 支付记录仓储
type Repository interface {
	// Create 写入支付记录，同一订单已有非失败记录时返回ErrDuplicatePayment
	Create(ctx context.Context, payment *Payment) error

	// FindByOrderID 订单当前有效的支付记录（忽略失败记录）
	FindByOrderID(ctx context.Context, orderID uint) (*Payment, error)

	// Update 更新状态
	Update(ctx context.Context, payment *Payment) error
}
