// Package gateway 支付网关实现
//
// Simulated：按配置的概率随机失败，本地开发和压测使用；
// GRPC：调用外部结算服务 fastorder.settlement.v1.Settlement/Charge。
package gateway

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiebiao/fastorder/internal/domain/payment"
)

// DefaultFailureRate 模拟网关默认失败率
const DefaultFailureRate = 0.5

// ErrSimulatedFailure 模拟网关失败
var ErrSimulatedFailure = errors.New("payment gateway failed")

// Simulated 模拟支付网关
type Simulated struct {
	failureRate float64
	latency     time.Duration

	mu  sync.Mutex // rand.Rand不是并发安全的
	rnd *rand.Rand
}

var _ payment.Gateway = (*Simulated)(nil)

// NewSimulated 创建模拟网关，rnd为nil时使用当前时间作为种子
func NewSimulated(failureRate float64, rnd *rand.Rand) *Simulated {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulated{failureRate: failureRate, rnd: rnd}
}

// WithLatency 每次调用前等待一段时间，模拟网络耗时
func (g *Simulated) WithLatency(d time.Duration) *Simulated {
	g.latency = d
	return g
}

// Charge 按失败率随机返回成功或失败
func (g *Simulated) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	if g.latency > 0 {
		select {
		case <-time.After(g.latency):
		case <-ctx.Done():
			return payment.ChargeResult{}, ctx.Err()
		}
	}

	g.mu.Lock()
	roll := g.rnd.Float64()
	g.mu.Unlock()

	if roll < g.failureRate {
		return payment.ChargeResult{}, ErrSimulatedFailure
	}
	return payment.ChargeResult{GatewayRef: "SIM-" + uuid.NewString()}, nil
}
