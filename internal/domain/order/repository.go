package order

import (
	"context"
	"time"
)

// Repository 订单仓储接口
// 由domain层定义，infrastructure层实现（MySQL / 内存）。
type Repository interface {
	// Create 创建订单，回填ID，Version置为1
	Create(ctx context.Context, order *Order) error

	// FindByID 根据ID查找订单，不存在返回ErrOrderNotFound
	FindByID(ctx context.Context, id uint) (*Order, error)

	// Update 按版本号条件更新（WHERE id=? AND version=?）
	// 版本不匹配返回ErrConcurrentUpdate，成功后order.Version+1
	Update(ctx context.Context, order *Order) error

	// ListByBuyer 买家的订单，按创建时间倒序
	ListByBuyer(ctx context.Context, buyerID uint, page, pageSize int) ([]*Order, int64, error)

	// List 全部订单（管理员），按创建时间倒序
	List(ctx context.Context, page, pageSize int) ([]*Order, int64, error)
}

// Locker 按订单加锁，保证同一订单的"读-校验-写"串行执行
type Locker interface {
	Lock(ctx context.Context, orderID uint) (unlock func(), err error)
}

// Clock 时钟，测试时可替换
type Clock func() time.Time
