package order

import (
	"context"
	"time"

	"github.com/xiebiao/fastorder/internal/domain/notification"
	"github.com/xiebiao/fastorder/internal/domain/order"
	"github.com/xiebiao/fastorder/internal/domain/product"
	"github.com/xiebiao/fastorder/pkg/logger"
	"github.com/xiebiao/fastorder/pkg/saga"
)

// sagaTimeout 单次状态迁移中所有存储步骤的总超时
const sagaTimeout = 5 * time.Second

// AcceptOrderUseCase 管理员接单
type AcceptOrderUseCase struct {
	orderRepo   order.Repository
	productRepo product.Repository
	locker      order.Locker
	notifier    notification.Notifier
	clock       order.Clock
}

// NewAcceptOrderUseCase 创建接单用例
func NewAcceptOrderUseCase(
	orderRepo order.Repository,
	productRepo product.Repository,
	locker order.Locker,
	notifier notification.Notifier,
	clock order.Clock,
) *AcceptOrderUseCase {
	return &AcceptOrderUseCase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		locker:      locker,
		notifier:    notifier,
		clock:       clock,
	}
}

// Execute 接单：pending → accepted，同时扣减库存
//
// 步骤：
//  1. [扣减库存]  失败补偿：归还库存
//  2. [保存订单]  按版本号条件更新
//
// 库存扣减是条件更新（stock + delta >= 0），库存不足时库存保持不变。
func (uc *AcceptOrderUseCase) Execute(ctx context.Context, orderID uint, actor order.Actor) (resp *OrderResponse, err error) {
	ctx, finish := beginTransition(ctx, "Accept", orderID)
	defer func() { finish(err) }()

	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	unlock, err := uc.locker.Lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.CanTransitionTo(order.StatusAccepted) {
		return nil, order.ErrInvalidTransition
	}

	if err := o.Accept(uc.clock()); err != nil {
		return nil, err
	}

	s := saga.NewSaga(sagaTimeout)
	s.AddStep("扣减库存",
		func(ctx context.Context) error {
			return uc.productRepo.UpdateStock(ctx, o.ProductID, -o.Quantity)
		},
		compensation("accept", func(ctx context.Context) error {
			return uc.productRepo.UpdateStock(ctx, o.ProductID, o.Quantity)
		}),
	)
	s.AddStep("保存订单", func(ctx context.Context) error {
		return uc.orderRepo.Update(ctx, o)
	}, nil)

	if err := s.Execute(ctx); err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Uint("order_id", o.ID).
		Uint("admin_id", actor.UserID).
		Int("quantity", o.Quantity).
		Msg("订单已接单")

	uc.notifier.Notify(ctx, newEvent(notification.EventOrderAccepted, o))
	return toOrderResponse(o), nil
}
