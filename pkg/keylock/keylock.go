// Package keylock 进程内按key加锁
// 同一个key串行，不同key互不阻塞；等待时响应ctx取消。
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	sem  chan struct{}
	refs int
}

// KeyLock 按key分段的互斥锁
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New 创建KeyLock
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*entry)}
}

// Lock 获取key对应的锁，返回的unlock必须且只能调用一次
func (k *KeyLock) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.release(key, e)
		})
	}, nil
}

// release 引用计数归零时删除entry，避免map无限增长
func (k *KeyLock) release(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// Len 当前持有或等待中的key数量
func (k *KeyLock) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
