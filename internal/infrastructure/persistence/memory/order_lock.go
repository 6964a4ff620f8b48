package memory

import (
	"context"
	"strconv"

	"github.com/xiebiao/fastorder/internal/domain/order"
	"github.com/xiebiao/fastorder/pkg/keylock"
)

// orderLocker 进程内订单锁，单实例部署时使用
type orderLocker struct {
	locks *keylock.KeyLock
}

// NewOrderLocker 创建进程内订单锁
func NewOrderLocker() order.Locker {
	return &orderLocker{locks: keylock.New()}
}

func (l *orderLocker) Lock(ctx context.Context, orderID uint) (func(), error) {
	return l.locks.Lock(ctx, strconv.FormatUint(uint64(orderID), 10))
}
