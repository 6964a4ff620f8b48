package order

import (
	"context"

	"github.com/xiebiao/fastorder/internal/domain/notification"
	"github.com/xiebiao/fastorder/internal/domain/order"
	"github.com/xiebiao/fastorder/internal/domain/product"
	"github.com/xiebiao/fastorder/pkg/logger"
)

// CreateOrderUseCase 下单用例
//
// 下单只校验库存，不扣减库存；库存在管理员接单时才扣减。
// 总价按下单时的商品单价计算，之后不再变化。
type CreateOrderUseCase struct {
	orderRepo   order.Repository
	productRepo product.Repository
	notifier    notification.Notifier
	clock       order.Clock
}

// NewCreateOrderUseCase 创建下单用例
func NewCreateOrderUseCase(
	orderRepo order.Repository,
	productRepo product.Repository,
	notifier notification.Notifier,
	clock order.Clock,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		notifier:    notifier,
		clock:       clock,
	}
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	Actor     order.Actor // 买家(从JWT中提取)
	ProductID uint
	Quantity  int
}

// Execute 执行下单
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (resp *OrderResponse, err error) {
	ctx, finish := beginTransition(ctx, "Create", 0)
	defer func() { finish(err) }()

	if req.Quantity <= 0 {
		return nil, order.ErrInvalidQuantity
	}

	p, err := uc.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.HasStock(req.Quantity) {
		return nil, product.ErrInsufficientStock
	}

	now := uc.clock()
	o, err := order.NewOrder(order.GenerateOrderNo(now), req.Actor.UserID, p.ID, req.Quantity, p.Price, now)
	if err != nil {
		return nil, err
	}
	if err := uc.orderRepo.Create(ctx, o); err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Uint("order_id", o.ID).
		Str("order_no", o.OrderNo).
		Uint("buyer_id", o.BuyerID).
		Int64("total_price", o.TotalPrice).
		Msg("订单已创建")

	uc.notifier.Notify(ctx, newEvent(notification.EventOrderCreated, o))
	return toOrderResponse(o), nil
}
