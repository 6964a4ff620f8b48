package product

import (
	"time"
)

// Product 商品（目录由外部维护，这里只关心价格和库存）
// 价格使用int64存储"分"为单位。
type Product struct {
	ID        uint
	Name      string
	Price     int64 // 单价(分)
	Stock     int   // 库存，任何时候都不能为负
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProduct 创建商品
func NewProduct(name string, price int64, stock int) (*Product, error) {
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrNegativeStock
	}
	now := time.Now()
	return &Product{
		Name:      name,
		Price:     price,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasStock 库存是否足够
func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}

// DecrStock 扣减库存（接单）
func (p *Product) DecrStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if p.Stock < quantity {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now()
	return nil
}

// IncrStock 归还库存（退款取消）
func (p *Product) IncrStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += quantity
	p.UpdatedAt = time.Now()
	return nil
}

// ApplyDelta 按增量调整库存，delta<0扣减，delta>0归还
func (p *Product) ApplyDelta(delta int) error {
	if delta < 0 {
		return p.DecrStock(-delta)
	}
	return p.IncrStock(delta)
}

// CheckInvariant 库存为负说明程序有bug，直接报内部错误，不做修正
func (p *Product) CheckInvariant() error {
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}
