package product

import (
	"context"
)

// Repository 商品仓储接口
type Repository interface {
	// Create 写入商品（目录同步、测试数据）
	Create(ctx context.Context, product *Product) error

	// FindByID 查询商品，不存在返回ErrProductNotFound
	FindByID(ctx context.Context, id uint) (*Product, error)

	// UpdateStock 原子调整库存：stock = stock + delta，且结果不能为负
	// 扣减时库存不足返回ErrInsufficientStock，库存不变。
	UpdateStock(ctx context.Context, id uint, delta int) error
}
