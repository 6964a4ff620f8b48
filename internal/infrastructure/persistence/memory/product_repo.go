package memory

import (
	"context"
	"sync"

	"github.com/xiebiao/fastorder/internal/domain/product"
)

type productRepository struct {
	mu     sync.RWMutex
	nextID uint
	items  map[uint]*product.Product
}

// NewProductRepository 创建内存商品仓储
func NewProductRepository() product.Repository {
	return &productRepository{items: make(map[uint]*product.Product)}
}

func (r *productRepository) Create(_ context.Context, p *product.Product) error {
	if err := p.CheckInvariant(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *productRepository) FindByID(_ context.Context, id uint) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

// UpdateStock 在写锁内完成校验和修改，等价于 UPDATE ... WHERE stock + ? >= 0
// 修改先作用在副本上，失败时已存储的商品保持不变。
func (r *productRepository) UpdateStock(_ context.Context, id uint, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return product.ErrProductNotFound
	}
	next := *p
	if err := next.ApplyDelta(delta); err != nil {
		return err
	}
	if err := next.CheckInvariant(); err != nil {
		return err
	}
	*p = next
	return nil
}
