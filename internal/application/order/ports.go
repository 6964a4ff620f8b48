package order

import (
	"context"

	"github.com/xiebiao/fastorder/internal/domain/payment"
)

// PaymentPipeline 支付执行管道（重试 + 熔断 + 网关）
type PaymentPipeline interface {
	Execute(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error)
}
