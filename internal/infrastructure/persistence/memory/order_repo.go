package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xiebiao/fastorder/internal/domain/order"
)

type orderRepository struct {
	mu     sync.RWMutex
	nextID uint
	items  map[uint]*order.Order
}

// NewOrderRepository 创建内存订单仓储
func NewOrderRepository() order.Repository {
	return &orderRepository{items: make(map[uint]*order.Order)}
}

func (r *orderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	o.ID = r.nextID
	o.Version = 1
	r.items[o.ID] = cloneOrder(o)
	return nil
}

func (r *orderRepository) FindByID(_ context.Context, id uint) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.items[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *orderRepository) Update(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[o.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if current.Version != o.Version {
		return order.ErrConcurrentUpdate
	}

	o.Version++
	r.items[o.ID] = cloneOrder(o)
	return nil
}

func (r *orderRepository) ListByBuyer(_ context.Context, buyerID uint, page, pageSize int) ([]*order.Order, int64, error) {
	return r.list(func(o *order.Order) bool { return o.BuyerID == buyerID }, page, pageSize)
}

func (r *orderRepository) List(_ context.Context, page, pageSize int) ([]*order.Order, int64, error) {
	return r.list(func(*order.Order) bool { return true }, page, pageSize)
}

func (r *orderRepository) list(match func(*order.Order) bool, page, pageSize int) ([]*order.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*order.Order
	for _, o := range r.items {
		if match(o) {
			matched = append(matched, o)
		}
	}

	// 创建时间倒序，时间相同按ID倒序
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []*order.Order{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	result := make([]*order.Order, 0, end-start)
	for _, o := range matched[start:end] {
		result = append(result, cloneOrder(o))
	}
	return result, total, nil
}

func cloneOrder(o *order.Order) *order.Order {
	cp := *o
	if o.RefundAmount != nil {
		v := *o.RefundAmount
		cp.RefundAmount = &v
	}
	if o.PaidAt != nil {
		v := *o.PaidAt
		cp.PaidAt = &v
	}
	if o.RefundedAt != nil {
		v := *o.RefundedAt
		cp.RefundedAt = &v
	}
	return &cp
}
