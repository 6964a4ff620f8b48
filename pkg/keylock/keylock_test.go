package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_SameKeySerialized(t *testing.T) {
	kl := New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := kl.Lock(context.Background(), "order:1")
			require.NoError(t, err)
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, kl.Len(), "全部释放后不应残留entry")
}

func TestLock_DifferentKeysIndependent(t *testing.T) {
	kl := New()

	unlockA, err := kl.Lock(context.Background(), "order:1")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := kl.Lock(ctx, "order:2")
	require.NoError(t, err)
	unlockB()
}

func TestLock_ContextCancelledWhileWaiting(t *testing.T) {
	kl := New()

	unlock, err := kl.Lock(context.Background(), "order:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = kl.Lock(ctx, "order:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // 重复调用无副作用
	assert.Equal(t, 0, kl.Len())
}
