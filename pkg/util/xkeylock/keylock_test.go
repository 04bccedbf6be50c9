package xkeylock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newLocker(t *testing.T, opts ...Option) *Locker {
	t.Helper()
	l, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestNew_ShardCount(t *testing.T) {
	for _, n := range []int{0, -1, 3, maxShardCount * 2} {
		_, err := New(WithShardCount(n))
		assert.ErrorIs(t, err, ErrInvalidShardCount, "n=%d", n)
	}
	l, err := New(WithShardCount(1), nil)
	require.NoError(t, err)
	require.NoError(t, l.Close())
}

func TestLock_Unlock(t *testing.T) {
	l := newLocker(t)

	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())

	unlock()
	unlock() // 第二次无效果
	assert.Equal(t, 0, l.Len())

	unlock, err = l.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
}

func TestLock_InvalidArgs(t *testing.T) {
	l := newLocker(t)

	_, err := l.Lock(nil, "a") //nolint:staticcheck // 测试 nil ctx
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = l.Lock(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = l.TryLock("")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLock_ContextCanceled(t *testing.T) {
	l := newLocker(t)

	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.Len())

	canceled, cancel2 := context.WithCancel(context.Background())
	cancel2()
	_, err = l.Lock(canceled, "b")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTryLock(t *testing.T) {
	l := newLocker(t)

	unlock, err := l.TryLock("a")
	require.NoError(t, err)
	require.NotNil(t, unlock)

	again, err := l.TryLock("a")
	require.NoError(t, err)
	assert.Nil(t, again)

	other, err := l.TryLock("b")
	require.NoError(t, err)
	require.NotNil(t, other)
	other()

	unlock()
	assert.Equal(t, 0, l.Len())
}

func TestLock_MutualExclusion(t *testing.T) {
	l := newLocker(t, WithShardCount(4))

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
		counter int
	)
	for range 50 {
		wg.Go(func() {
			unlock, err := l.Lock(context.Background(), "shared")
			if err != nil {
				return
			}
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			counter++
			inside.Add(-1)
			unlock()
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.Len())
}

func TestClose_WakesWaiters(t *testing.T) {
	l, err := New()
	require.NoError(t, err)

	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := l.Lock(context.Background(), "a")
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		s := l.shard("a")
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.entries["a"] != nil && s.entries["a"].refs == 2
	}, time.Second, time.Millisecond)

	require.NoError(t, l.Close())
	assert.ErrorIs(t, <-errCh, ErrClosed)
	assert.ErrorIs(t, l.Close(), ErrClosed)

	_, err = l.TryLock("b")
	assert.ErrorIs(t, err, ErrClosed)

	// 已持有的锁仍可释放
	unlock()
	assert.Equal(t, 0, l.Len())
}
