package order

import (
	"context"

	"github.com/xiebiao/fastorder/internal/domain/order"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ListOrdersUseCase 订单查询
type ListOrdersUseCase struct {
	orderRepo order.Repository
}

// NewListOrdersUseCase 创建订单查询用例
func NewListOrdersUseCase(orderRepo order.Repository) *ListOrdersUseCase {
	return &ListOrdersUseCase{orderRepo: orderRepo}
}

// ListMine 当前买家的订单，按创建时间倒序
func (uc *ListOrdersUseCase) ListMine(ctx context.Context, actor order.Actor, page, pageSize int) (*OrderListResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	orders, total, err := uc.orderRepo.ListByBuyer(ctx, actor.UserID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return toListResponse(orders, total, page, pageSize), nil
}

// ListAll 全部订单，仅管理员
func (uc *ListOrdersUseCase) ListAll(ctx context.Context, actor order.Actor, page, pageSize int) (*OrderListResponse, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	page, pageSize = normalizePage(page, pageSize)
	orders, total, err := uc.orderRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return toListResponse(orders, total, page, pageSize), nil
}

// Get 订单详情，买家本人或管理员
func (uc *ListOrdersUseCase) Get(ctx context.Context, orderID uint, actor order.Actor) (*OrderResponse, error) {
	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(o) {
		return nil, order.ErrNotOwner
	}
	return toOrderResponse(o), nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func toListResponse(orders []*order.Order, total int64, page, pageSize int) *OrderListResponse {
	items := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(o))
	}
	return &OrderListResponse{
		Orders:   items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
}
