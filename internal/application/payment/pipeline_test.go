package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/fastorder/internal/domain/payment"
	"github.com/xiebiao/fastorder/pkg/circuitbreaker"
)

var errDeclined = errors.New("card declined")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedGateway 按脚本依次返回结果，脚本用完后一直成功
type scriptedGateway struct {
	mu     sync.Mutex
	script []error
	calls  int
}

func (g *scriptedGateway) Charge(_ context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	if i < len(g.script) && g.script[i] != nil {
		return payment.ChargeResult{}, g.script[i]
	}
	return payment.ChargeResult{GatewayRef: "ref"}, nil
}

func (g *scriptedGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func failing(n int) []error {
	s := make([]error, n)
	for i := range s {
		s[i] = errDeclined
	}
	return s
}

func newTestPipeline(gw payment.Gateway, clock *fakeClock, threshold uint32) *Pipeline {
	breaker := NewGatewayBreaker("test-gateway", circuitbreaker.Config{
		FailureThreshold: threshold,
		Now:              clock.Now,
	})
	return NewPipeline(gw, breaker, DefaultOptions())
}

func TestPipeline_SucceedsWithinRetries(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	gw := &scriptedGateway{script: failing(2)}
	p := newTestPipeline(gw, clock, 3)

	res, err := p.Execute(context.Background(), payment.ChargeRequest{OrderID: 1, Amount: 10000})
	require.NoError(t, err)
	assert.Equal(t, "ref", res.GatewayRef)
	assert.Equal(t, 3, gw.Calls())
	assert.Equal(t, circuitbreaker.StateClosed, p.breaker.State())
}

func TestPipeline_ExhaustedRetriesReturnPaymentFailed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	gw := &scriptedGateway{script: failing(10)}
	p := newTestPipeline(gw, clock, 3)

	_, err := p.Execute(context.Background(), payment.ChargeRequest{OrderID: 1, Amount: 10000})
	require.Error(t, err)
	assert.True(t, errors.Is(err, payment.ErrPaymentFailed))
	assert.True(t, errors.Is(err, errDeclined), "保留最后一次网关错误")
	assert.Equal(t, 3, gw.Calls())

	// 第三次失败后熔断器已打开
	assert.Equal(t, circuitbreaker.StateOpen, p.breaker.State())
}

func TestPipeline_OpenBreakerSkipsGateway(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	gw := &scriptedGateway{script: failing(3)}
	p := newTestPipeline(gw, clock, 3)

	_, err := p.Execute(context.Background(), payment.ChargeRequest{OrderID: 1})
	require.Error(t, err)
	require.Equal(t, 3, gw.Calls())

	_, err = p.Execute(context.Background(), payment.ChargeRequest{OrderID: 2})
	assert.True(t, errors.Is(err, payment.ErrPaymentUnavailable))
	assert.True(t, errors.Is(err, circuitbreaker.ErrOpenState))
	assert.Equal(t, 3, gw.Calls(), "熔断期间不调用网关")

	// 冷却结束后恢复调用
	clock.Advance(circuitbreaker.DefaultCooldown)
	_, err = p.Execute(context.Background(), payment.ChargeRequest{OrderID: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, gw.Calls())
}

func TestPipeline_BreakerOpensMidRetry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	gw := &scriptedGateway{script: failing(1)}
	p := newTestPipeline(gw, clock, 1)

	_, err := p.Execute(context.Background(), payment.ChargeRequest{OrderID: 1})
	assert.True(t, errors.Is(err, payment.ErrPaymentUnavailable))
	assert.Equal(t, 1, gw.Calls(), "熔断后剩余的重试不触达网关")
}

func TestPipeline_NoRetryOnOpen(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	gw := &scriptedGateway{script: failing(1)}
	breaker := circuitbreaker.NewCircuitBreaker("strict", circuitbreaker.Config{
		FailureThreshold: 1,
		Now:              clock.Now,
	})
	opts := DefaultOptions()
	opts.RetryOnOpen = false
	p := NewPipeline(gw, breaker, opts)

	attempts, err := p.retrier.Do(context.Background(), func(ctx context.Context) error {
		return p.breaker.Execute(func() error {
			_, err := gw.Charge(ctx, payment.ChargeRequest{})
			return err
		})
	})
	assert.True(t, errors.Is(err, circuitbreaker.ErrOpenState))
	assert.Equal(t, 2, attempts, "第一次网关失败触发熔断，第二次拿到ErrOpenState后停止")
}

func TestPipeline_SharedBreakerAcrossCallers(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	breaker := NewGatewayBreaker("shared", circuitbreaker.Config{Now: clock.Now})

	bad := &scriptedGateway{script: failing(3)}
	good := &scriptedGateway{}
	p1 := NewPipeline(bad, breaker, DefaultOptions())
	p2 := NewPipeline(good, breaker, DefaultOptions())

	_, err := p1.Execute(context.Background(), payment.ChargeRequest{OrderID: 1})
	require.Error(t, err)

	_, err = p2.Execute(context.Background(), payment.ChargeRequest{OrderID: 2})
	assert.True(t, errors.Is(err, payment.ErrPaymentUnavailable))
	assert.Equal(t, 0, good.Calls())
}
