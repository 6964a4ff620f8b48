package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appayment "github.com/xiebiao/fastorder/internal/application/payment"
	"github.com/xiebiao/fastorder/internal/domain/notification"
	"github.com/xiebiao/fastorder/internal/domain/order"
	"github.com/xiebiao/fastorder/internal/domain/payment"
	"github.com/xiebiao/fastorder/internal/domain/product"
	"github.com/xiebiao/fastorder/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/fastorder/pkg/circuitbreaker"
)

var (
	buyer = order.Actor{UserID: 1}
	other = order.Actor{UserID: 2}
	admin = order.Actor{UserID: 99, IsAdmin: true}
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubGateway struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (g *stubGateway) Charge(context.Context, payment.ChargeRequest) (payment.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail {
		return payment.ChargeResult{}, errors.New("gateway declined")
	}
	return payment.ChargeResult{GatewayRef: "txn-ok"}, nil
}

func (g *stubGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) Types() []notification.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]notification.EventType, 0, len(n.events))
	for _, e := range n.events {
		types = append(types, e.Type)
	}
	return types
}

// failingUpdates 让订单保存失败，用于验证Saga补偿
type failingUpdates struct {
	order.Repository
	err error
}

func (r *failingUpdates) Update(context.Context, *order.Order) error {
	return r.err
}

type fixture struct {
	orders   order.Repository
	products product.Repository
	payments payment.Repository
	clock    *testClock
	gateway  *stubGateway
	notifier *recordingNotifier

	create *CreateOrderUseCase
	accept *AcceptOrderUseCase
	pay    *PayOrderUseCase
	cancel *CancelOrderUseCase
	list   *ListOrdersUseCase

	productID uint
}

func newFixture(t *testing.T, price int64, stock int) *fixture {
	t.Helper()

	f := &fixture{
		orders:   memory.NewOrderRepository(),
		products: memory.NewProductRepository(),
		payments: memory.NewPaymentRepository(),
		clock:    &testClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
		gateway:  &stubGateway{},
		notifier: &recordingNotifier{},
	}
	f.wire(f.orders)

	p, err := product.NewProduct("机械键盘", price, stock)
	require.NoError(t, err)
	require.NoError(t, f.products.Create(context.Background(), p))
	f.productID = p.ID
	return f
}

func (f *fixture) wire(orders order.Repository) {
	locker := memory.NewOrderLocker()
	breaker := appayment.NewGatewayBreaker("lifecycle-test", circuitbreaker.Config{Now: f.clock.Now})
	pipeline := appayment.NewPipeline(f.gateway, breaker, appayment.DefaultOptions())

	f.create = NewCreateOrderUseCase(orders, f.products, f.notifier, f.clock.Now)
	f.accept = NewAcceptOrderUseCase(orders, f.products, locker, f.notifier, f.clock.Now)
	f.pay = NewPayOrderUseCase(orders, f.payments, pipeline, locker, f.notifier, f.clock.Now)
	f.cancel = NewCancelOrderUseCase(orders, f.products, f.payments, locker, f.notifier, f.clock.Now)
	f.list = NewListOrdersUseCase(orders)
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), f.productID)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) order(t *testing.T, id uint) *order.Order {
	t.Helper()
	o, err := f.orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

// paidOrder 创建并接单、支付一个订单
func (f *fixture) paidOrder(t *testing.T, qty int) uint {
	t.Helper()
	ctx := context.Background()

	created, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: qty})
	require.NoError(t, err)
	_, err = f.accept.Execute(ctx, created.ID, admin)
	require.NoError(t, err)
	_, err = f.pay.Execute(ctx, created.ID, buyer)
	require.NoError(t, err)
	return created.ID
}

func TestLifecycle_PayThenCancelWithin24Hours(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 10)

	created, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), created.TotalPrice)
	assert.Equal(t, "100.00", created.TotalYuan)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "pending", created.PaymentStatus)
	assert.Equal(t, 10, f.stock(t), "下单不扣库存")

	accepted, err := f.accept.Execute(ctx, created.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, "accepted", accepted.Status)
	assert.Equal(t, 8, f.stock(t))

	paid, err := f.pay.Execute(ctx, created.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), paid.Amount)
	assert.Equal(t, "success", paid.Status)

	o := f.order(t, created.ID)
	assert.Equal(t, order.PaymentSuccess, o.PaymentStatus)
	require.NotNil(t, o.PaidAt)

	f.clock.Advance(10 * time.Hour)
	cancelled, err := f.cancel.Execute(ctx, created.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "refunded", cancelled.PaymentStatus)
	require.NotNil(t, cancelled.RefundAmount)
	assert.Equal(t, int64(9000), *cancelled.RefundAmount)
	assert.NotNil(t, cancelled.RefundedAt)
	assert.Equal(t, 10, f.stock(t), "退款取消归还库存")

	_, err = f.payments.FindByOrderID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, []notification.EventType{
		notification.EventOrderCreated,
		notification.EventOrderAccepted,
		notification.EventPaymentReceipt,
		notification.EventOrderRefunded,
	}, f.notifier.Types())
}

func TestCancel_RefundTiers(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		refund  int64
		wantErr error
	}{
		{"23小时59分", 23*time.Hour + 59*time.Minute, 9000, nil},
		{"正好24小时", 24 * time.Hour, 2500, nil},
		{"48小时59分仍按48小时计", 48*time.Hour + 59*time.Minute, 2500, nil},
		{"49小时", 49 * time.Hour, 0, order.ErrCancellationWindowExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 5000, 10)
			id := f.paidOrder(t, 2)

			f.clock.Advance(tt.elapsed)
			resp, err := f.cancel.Execute(context.Background(), id, buyer)

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				o := f.order(t, id)
				assert.Equal(t, order.StatusAccepted, o.Status)
				assert.Equal(t, order.PaymentSuccess, o.PaymentStatus)
				assert.Equal(t, 8, f.stock(t))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.refund, *resp.RefundAmount)
			assert.Equal(t, 10, f.stock(t))
		})
	}
}

func TestCancel_WindowMeasuredFromLastStatusChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 10)

	created, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.accept.Execute(ctx, created.ID, admin)
	require.NoError(t, err)

	// 接单20小时后才支付，支付后5小时取消：距接单25小时
	f.clock.Advance(20 * time.Hour)
	_, err = f.pay.Execute(ctx, created.ID, buyer)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Hour)

	resp, err := f.cancel.Execute(ctx, created.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), *resp.RefundAmount)
}

func TestPay_AlreadyPaid(t *testing.T) {
	f := newFixture(t, 5000, 10)
	id := f.paidOrder(t, 1)

	_, err := f.pay.Execute(context.Background(), id, buyer)
	assert.True(t, errors.Is(err, order.ErrAlreadyPaid))
	assert.Equal(t, 1, f.gateway.Calls(), "重复支付不调用网关")
}

func TestPay_ConcurrentRequestsChargeOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 10)

	created, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.accept.Execute(ctx, created.ID, admin)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pay.Execute(ctx, created.ID, buyer)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, order.ErrAlreadyPaid))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.gateway.Calls())
}

func TestAccept_ConcurrentWithCancel(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		f := newFixture(t, 5000, 10)
		created, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 3})
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
			canceled int
			losers   []error
		)
		run := func(fn func() error, won *int) {
			defer wg.Done()
			err := fn()
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				*won++
				return
			}
			losers = append(losers, err)
		}
		for i := 0; i < 4; i++ {
			wg.Add(2)
			go run(func() error {
				_, err := f.accept.Execute(ctx, created.ID, admin)
				return err
			}, &accepted)
			go run(func() error {
				_, err := f.cancel.Execute(ctx, created.ID, buyer)
				return err
			}, &canceled)
		}
		wg.Wait()

		assert.LessOrEqual(t, accepted, 1, "round %d", round)
		assert.Equal(t, 1, canceled, "round %d", round)
		for _, err := range losers {
			assert.True(t, errors.Is(err, order.ErrInvalidTransition), "round %d: %v", round, err)
		}

		got := f.order(t, created.ID)
		assert.Equal(t, order.StatusCancelled, got.Status)

		// 先接单再取消时库存已扣减且不归还，先取消时接单全部失败
		if accepted == 1 {
			assert.Equal(t, 7, f.stock(t), "round %d", round)
		} else {
			assert.Equal(t, 10, f.stock(t), "round %d", round)
		}
	}
}

func TestPay_GatewayFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 10)
	f.gateway.fail = true

	created, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.accept.Execute(ctx, created.ID, admin)
	require.NoError(t, err)

	_, err = f.pay.Execute(ctx, created.ID, buyer)
	assert.True(t, errors.Is(err, payment.ErrPaymentFailed))
	assert.Equal(t, 3, f.gateway.Calls())

	o := f.order(t, created.ID)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.Nil(t, o.PaidAt)
	_, err = f.payments.FindByOrderID(ctx, created.ID)
	assert.True(t, errors.Is(err, payment.ErrPaymentNotFound))

	// 三次失败后熔断，再次支付不调用网关
	_, err = f.pay.Execute(ctx, created.ID, buyer)
	assert.True(t, errors.Is(err, payment.ErrPaymentUnavailable))
	assert.Equal(t, 3, f.gateway.Calls())

	// 冷却结束后恢复
	f.gateway.fail = false
	f.clock.Advance(circuitbreaker.DefaultCooldown)
	_, err = f.pay.Execute(ctx, created.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, 4, f.gateway.Calls())
}

func TestCreate_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 3)

	_, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 4})
	assert.True(t, errors.Is(err, product.ErrInsufficientStock))

	_, err = f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: 404, Quantity: 1})
	assert.True(t, errors.Is(err, product.ErrProductNotFound))

	_, err = f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 0})
	assert.True(t, errors.Is(err, order.ErrInvalidQuantity))

	assert.Empty(t, f.notifier.Types())
}

func TestAccept_InsufficientStockLeavesStockUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 1)

	first, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 1})
	require.NoError(t, err)
	second, err := f.create.Execute(ctx, CreateOrderRequest{Actor: other, ProductID: f.productID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.accept.Execute(ctx, first.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, 0, f.stock(t))

	_, err = f.accept.Execute(ctx, second.ID, admin)
	assert.True(t, errors.Is(err, product.ErrInsufficientStock))
	assert.Equal(t, 0, f.stock(t))
	assert.Equal(t, order.StatusPending, f.order(t, second.ID).Status)
}

func TestAccept_SaveFailureRestoresStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 10)

	created, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 3})
	require.NoError(t, err)

	f.wire(&failingUpdates{Repository: f.orders, err: order.ErrConcurrentUpdate})
	_, err = f.accept.Execute(ctx, created.ID, admin)
	assert.True(t, errors.Is(err, order.ErrConcurrentUpdate))
	assert.Equal(t, 10, f.stock(t), "订单保存失败后库存被补偿")
	assert.Equal(t, order.StatusPending, f.order(t, created.ID).Status)
}

func TestPay_SaveFailureMarksPaymentFailed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 10)

	created, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.accept.Execute(ctx, created.ID, admin)
	require.NoError(t, err)

	f.wire(&failingUpdates{Repository: f.orders, err: order.ErrConcurrentUpdate})
	_, err = f.pay.Execute(ctx, created.ID, buyer)
	assert.True(t, errors.Is(err, order.ErrConcurrentUpdate))

	_, err = f.payments.FindByOrderID(ctx, created.ID)
	assert.True(t, errors.Is(err, payment.ErrPaymentNotFound), "支付记录被标记为失败")
	assert.Equal(t, order.PaymentPending, f.order(t, created.ID).PaymentStatus)
}

func TestCancel_RefundSaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 10)
	id := f.paidOrder(t, 2)

	f.wire(&failingUpdates{Repository: f.orders, err: order.ErrConcurrentUpdate})
	_, err := f.cancel.Execute(ctx, id, buyer)
	assert.True(t, errors.Is(err, order.ErrConcurrentUpdate))

	assert.Equal(t, 8, f.stock(t))
	p, err := f.payments.FindByOrderID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccess, p.Status)
	assert.Equal(t, order.PaymentSuccess, f.order(t, id).PaymentStatus)
}

func TestCancel_Unpaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 10)

	pending, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 2})
	require.NoError(t, err)
	resp, err := f.cancel.Execute(ctx, pending.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)
	assert.Equal(t, "pending", resp.PaymentStatus)
	assert.Nil(t, resp.RefundAmount)

	// 已接单未支付：直接取消，不退款也不归还库存
	accepted, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.accept.Execute(ctx, accepted.ID, admin)
	require.NoError(t, err)
	f.clock.Advance(72 * time.Hour)
	resp, err = f.cancel.Execute(ctx, accepted.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)
	assert.Equal(t, "pending", resp.PaymentStatus)
	assert.Equal(t, 8, f.stock(t))
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 10)

	created, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.pay.Execute(ctx, created.ID, buyer)
	assert.True(t, errors.Is(err, order.ErrInvalidTransition), "待接单不能支付")
	assert.Equal(t, 0, f.gateway.Calls())

	_, err = f.accept.Execute(ctx, created.ID, admin)
	require.NoError(t, err)
	_, err = f.accept.Execute(ctx, created.ID, admin)
	assert.True(t, errors.Is(err, order.ErrInvalidTransition), "不能重复接单")
	assert.Equal(t, 9, f.stock(t))

	_, err = f.cancel.Execute(ctx, created.ID, buyer)
	require.NoError(t, err)

	_, err = f.cancel.Execute(ctx, created.ID, buyer)
	assert.True(t, errors.Is(err, order.ErrInvalidTransition), "已取消是终态")
	_, err = f.pay.Execute(ctx, created.ID, buyer)
	assert.True(t, errors.Is(err, order.ErrInvalidTransition))
	_, err = f.accept.Execute(ctx, created.ID, admin)
	assert.True(t, errors.Is(err, order.ErrInvalidTransition))
}

func TestAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 10)

	created, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.accept.Execute(ctx, created.ID, buyer)
	assert.True(t, errors.Is(err, order.ErrAdminRequired))
	assert.Equal(t, 10, f.stock(t))

	_, err = f.accept.Execute(ctx, created.ID, admin)
	require.NoError(t, err)

	_, err = f.pay.Execute(ctx, created.ID, other)
	assert.True(t, errors.Is(err, order.ErrNotOwner))
	assert.Equal(t, 0, f.gateway.Calls())

	_, err = f.cancel.Execute(ctx, created.ID, other)
	assert.True(t, errors.Is(err, order.ErrNotOwner))

	_, err = f.accept.Execute(ctx, 404, admin)
	assert.True(t, errors.Is(err, order.ErrOrderNotFound))
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5000, 10)

	for i := 0; i < 3; i++ {
		_, err := f.create.Execute(ctx, CreateOrderRequest{Actor: buyer, ProductID: f.productID, Quantity: 1})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
	theirs, err := f.create.Execute(ctx, CreateOrderRequest{Actor: other, ProductID: f.productID, Quantity: 1})
	require.NoError(t, err)

	mine, err := f.list.ListMine(ctx, buyer, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), mine.Total)
	assert.Len(t, mine.Orders, 3)

	_, err = f.list.ListAll(ctx, buyer, 1, 10)
	assert.True(t, errors.Is(err, order.ErrAdminRequired))

	all, err := f.list.ListAll(ctx, admin, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)
	assert.Equal(t, 1, all.Page, "页码校正")
	assert.Equal(t, 10, all.PageSize, "默认每页数量")
	assert.Equal(t, theirs.ID, all.Orders[0].ID, "按创建时间倒序")

	_, err = f.list.Get(ctx, theirs.ID, buyer)
	assert.True(t, errors.Is(err, order.ErrNotOwner))

	got, err := f.list.Get(ctx, theirs.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, theirs.OrderNo, got.OrderNo)
}
