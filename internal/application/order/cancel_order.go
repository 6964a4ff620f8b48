package order

import (
	"context"
	"errors"

	"github.com/xiebiao/fastorder/internal/domain/notification"
	"github.com/xiebiao/fastorder/internal/domain/order"
	"github.com/xiebiao/fastorder/internal/domain/payment"
	"github.com/xiebiao/fastorder/internal/domain/product"
	"github.com/xiebiao/fastorder/internal/domain/refund"
	"github.com/xiebiao/fastorder/pkg/logger"
	"github.com/xiebiao/fastorder/pkg/metrics"
	"github.com/xiebiao/fastorder/pkg/saga"
)

// CancelOrderUseCase 买家取消订单
type CancelOrderUseCase struct {
	orderRepo   order.Repository
	productRepo product.Repository
	paymentRepo payment.Repository
	locker      order.Locker
	notifier    notification.Notifier
	clock       order.Clock
}

// NewCancelOrderUseCase 创建取消订单用例
func NewCancelOrderUseCase(
	orderRepo order.Repository,
	productRepo product.Repository,
	paymentRepo payment.Repository,
	locker order.Locker,
	notifier notification.Notifier,
	clock order.Clock,
) *CancelOrderUseCase {
	return &CancelOrderUseCase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		paymentRepo: paymentRepo,
		locker:      locker,
		notifier:    notifier,
		clock:       clock,
	}
}

// Execute 取消订单
//
// 未支付：直接取消，支付状态不变。
// 已支付：按距UpdatedAt的整小时数计算退款，超过48小时拒绝取消。
func (uc *CancelOrderUseCase) Execute(ctx context.Context, orderID uint, actor order.Actor) (resp *OrderResponse, err error) {
	ctx, finish := beginTransition(ctx, "Cancel", orderID)
	defer func() { finish(err) }()

	unlock, err := uc.locker.Lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := actor.RequireOwner(o); err != nil {
		return nil, err
	}
	if o.IsTerminal() {
		return nil, order.ErrInvalidTransition
	}

	now := uc.clock()
	if !o.IsPaid() {
		if err := o.Cancel(now); err != nil {
			return nil, err
		}
		if err := uc.orderRepo.Update(ctx, o); err != nil {
			return nil, err
		}
		logger.Ctx(ctx).Info().Uint("order_id", o.ID).Msg("未支付订单已取消")
		uc.notifier.Notify(ctx, newEvent(notification.EventOrderCancelled, o))
		return toOrderResponse(o), nil
	}

	hours := o.HoursSinceUpdate(now)
	decision := refund.Compute(o.TotalPrice, hours)
	if !decision.Permitted {
		return nil, order.ErrCancellationWindowExpired
	}

	if err := uc.refund(ctx, o, decision.Amount); err != nil {
		return nil, err
	}

	metrics.RecordRefund(string(decision.Tier), decision.Amount)
	logger.Ctx(ctx).Info().
		Uint("order_id", o.ID).
		Int("hours_elapsed", hours).
		Str("tier", string(decision.Tier)).
		Int64("refund_amount", decision.Amount).
		Msg("已支付订单退款取消")

	event := newEvent(notification.EventOrderRefunded, o)
	event.RefundAmount = decision.Amount
	uc.notifier.Notify(ctx, event)

	return toOrderResponse(o), nil
}

// refund 退款取消
//
// 步骤：
//  1. [归还库存]          失败补偿：重新扣减库存
//  2. [支付记录标记退款]  失败补偿：恢复为支付成功
//  3. [保存订单]          按版本号条件更新
func (uc *CancelOrderUseCase) refund(ctx context.Context, o *order.Order, amount int64) error {
	now := uc.clock()
	if err := o.Refund(amount, now); err != nil {
		return err
	}

	var p *payment.Payment

	s := saga.NewSaga(sagaTimeout)
	s.AddStep("归还库存",
		func(ctx context.Context) error {
			return uc.productRepo.UpdateStock(ctx, o.ProductID, o.Quantity)
		},
		compensation("refund", func(ctx context.Context) error {
			return uc.productRepo.UpdateStock(ctx, o.ProductID, -o.Quantity)
		}),
	)
	s.AddStep("支付记录标记退款",
		func(ctx context.Context) error {
			found, err := uc.paymentRepo.FindByOrderID(ctx, o.ID)
			if errors.Is(err, payment.ErrPaymentNotFound) {
				logger.Ctx(ctx).Warn().Uint("order_id", o.ID).Msg("已支付订单没有支付记录")
				return nil
			}
			if err != nil {
				return err
			}
			if err := found.MarkRefunded(now); err != nil {
				return err
			}
			if err := uc.paymentRepo.Update(ctx, found); err != nil {
				return err
			}
			p = found
			return nil
		},
		compensation("refund", func(ctx context.Context) error {
			if p == nil {
				return nil
			}
			p.RevertRefund(uc.clock())
			return uc.paymentRepo.Update(ctx, p)
		}),
	)
	s.AddStep("保存订单", func(ctx context.Context) error {
		return uc.orderRepo.Update(ctx, o)
	}, nil)

	return s.Execute(ctx)
}
