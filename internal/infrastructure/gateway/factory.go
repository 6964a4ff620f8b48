package gateway

import (
	"fmt"

	"github.com/xiebiao/fastorder/internal/domain/payment"
	"github.com/xiebiao/fastorder/internal/infrastructure/config"
)

// New 按配置创建支付网关，返回的cleanup用于释放连接
func New(cfg config.PaymentConfig) (payment.Gateway, func(), error) {
	switch cfg.Gateway {
	case "simulated":
		return NewSimulated(cfg.FailureRate, nil), func() {}, nil
	case "grpc":
		gw, err := NewGRPC(cfg.GRPCTarget, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return gw, func() { _ = gw.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("未知的支付网关: %s", cfg.Gateway)
	}
}
