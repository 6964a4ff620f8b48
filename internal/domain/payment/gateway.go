package payment

import (
	"context"
)

// ChargeRequest 扣款请求
type ChargeRequest struct {
	OrderID uint
	OrderNo string
	Amount  int64 // 单位:分
}

// ChargeResult 扣款结果
type ChargeResult struct {
	GatewayRef string
}

// Gateway 外部支付网关，每次调用成功或失败由网关决定
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// GatewayFunc 函数适配器
type GatewayFunc func(ctx context.Context, req ChargeRequest) (ChargeResult, error)

func (f GatewayFunc) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	return f(ctx, req)
}
