package memory

import (
	"context"
	"sync"

	"github.com/xiebiao/fastorder/internal/domain/payment"
)

type paymentRepository struct {
	mu     sync.RWMutex
	nextID uint
	items  map[uint]*payment.Payment
}

// NewPaymentRepository 创建内存支付记录仓储
func NewPaymentRepository() payment.Repository {
	return &paymentRepository{items: make(map[uint]*payment.Payment)}
}

func (r *paymentRepository) Create(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeLocked(p.OrderID) != nil {
		return payment.ErrDuplicatePayment
	}

	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *paymentRepository) FindByOrderID(_ context.Context, orderID uint) (*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.activeLocked(orderID)
	if p == nil {
		return nil, payment.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *paymentRepository) Update(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[p.ID]; !ok {
		return payment.ErrPaymentNotFound
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

// activeLocked 订单的非失败支付记录，调用方需持有锁
func (r *paymentRepository) activeLocked(orderID uint) *payment.Payment {
	for _, p := range r.items {
		if p.OrderID == orderID && p.Status != payment.StatusFailed {
			return p
		}
	}
	return nil
}
