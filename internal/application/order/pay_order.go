package order

import (
	"context"

	"github.com/xiebiao/fastorder/internal/domain/notification"
	"github.com/xiebiao/fastorder/internal/domain/order"
	"github.com/xiebiao/fastorder/internal/domain/payment"
	"github.com/xiebiao/fastorder/pkg/logger"
	"github.com/xiebiao/fastorder/pkg/saga"
)

// PayOrderUseCase 买家支付
type PayOrderUseCase struct {
	orderRepo   order.Repository
	paymentRepo payment.Repository
	pipeline    PaymentPipeline
	locker      order.Locker
	notifier    notification.Notifier
	clock       order.Clock
}

// NewPayOrderUseCase 创建支付用例
func NewPayOrderUseCase(
	orderRepo order.Repository,
	paymentRepo payment.Repository,
	pipeline PaymentPipeline,
	locker order.Locker,
	notifier notification.Notifier,
	clock order.Clock,
) *PayOrderUseCase {
	return &PayOrderUseCase{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		pipeline:    pipeline,
		locker:      locker,
		notifier:    notifier,
		clock:       clock,
	}
}

// Execute 支付订单
//
// 持有订单锁后重新读取订单再判断是否已支付，
// 同一订单的并发支付请求最多只有一个会调用支付管道。
// 管道失败时不写任何数据；订单的UpdatedAt不因支付而改变。
//
// 步骤：
//  1. [写入支付记录]  失败补偿：支付记录标记为失败
//  2. [保存订单]      按版本号条件更新
func (uc *PayOrderUseCase) Execute(ctx context.Context, orderID uint, actor order.Actor) (resp *PaymentResponse, err error) {
	ctx, finish := beginTransition(ctx, "Pay", orderID)
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
	if err := o.CheckPayable(); err != nil {
		return nil, err
	}

	result, err := uc.pipeline.Execute(ctx, payment.ChargeRequest{
		OrderID: o.ID,
		OrderNo: o.OrderNo,
		Amount:  o.TotalPrice,
	})
	if err != nil {
		return nil, err
	}

	now := uc.clock()
	p := payment.NewSuccessPayment(payment.GeneratePaymentNo(now), o.ID, o.TotalPrice, result.GatewayRef, now)
	if err := o.MarkPaid(now); err != nil {
		return nil, err
	}

	s := saga.NewSaga(sagaTimeout)
	s.AddStep("写入支付记录",
		func(ctx context.Context) error {
			return uc.paymentRepo.Create(ctx, p)
		},
		compensation("pay", func(ctx context.Context) error {
			p.MarkFailed(uc.clock())
			return uc.paymentRepo.Update(ctx, p)
		}),
	)
	s.AddStep("保存订单", func(ctx context.Context) error {
		return uc.orderRepo.Update(ctx, o)
	}, nil)

	if err := s.Execute(ctx); err != nil {
		// 网关已扣款但本地未能落库
		logger.Ctx(ctx).Error().
			Err(err).
			Uint("order_id", o.ID).
			Str("gateway_ref", result.GatewayRef).
			Msg("支付成功但保存失败，需要人工核对")
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Uint("order_id", o.ID).
		Str("payment_no", p.PaymentNo).
		Int64("amount", p.Amount).
		Msg("订单已支付")

	event := newEvent(notification.EventPaymentReceipt, o)
	event.PaymentNo = p.PaymentNo
	event.OccurredAt = now
	uc.notifier.Notify(ctx, event)

	return toPaymentResponse(p), nil
}
