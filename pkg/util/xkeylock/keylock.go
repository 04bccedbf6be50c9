package xkeylock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Locker 是按 key 互斥的进程内锁，并发安全。
type Locker struct {
	shards []shard
	mask   uint64
	count  atomic.Int64
	closed atomic.Bool
	done   chan struct{}
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// entry 的 ch 是容量为 1 的 channel：发送成功即持有锁，接收即释放。
type entry struct {
	ch chan struct{}
	// refs 是持有者与等待者的总数，归零时条目从 map 删除
	refs int
}

// New 创建 Locker。
func New(opts ...Option) (*Locker, error) {
	o := options{shardCount: defaultShardCount}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	shards := make([]shard, o.shardCount)
	for i := range shards {
		shards[i].entries = make(map[string]*entry)
	}
	return &Locker{
		shards: shards,
		mask:   uint64(o.shardCount - 1),
		done:   make(chan struct{}),
	}, nil
}

func (l *Locker) shard(key string) *shard {
	return &l.shards[xxhash.Sum64String(key)&l.mask]
}

func (l *Locker) ref(key string) (*entry, error) {
	s := l.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.closed.Load() {
		return nil, ErrClosed
	}
	e, ok := s.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		s.entries[key] = e
		l.count.Add(1)
	}
	e.refs++
	return e, nil
}

func (l *Locker) unref(key string, e *entry) {
	s := l.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(s.entries, key)
		l.count.Add(-1)
	}
}

// unlocker 返回只生效一次的释放函数。
func (l *Locker) unlocker(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
	}
}

// Lock 阻塞获取 key 的锁，返回的 unlock 可重复调用，只有第一次生效。
//
// ctx 取消时返回 ctx.Err()；等待期间 Locker 被关闭时返回 [ErrClosed]。
func (l *Locker) Lock(ctx context.Context, key string) (unlock func(), err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if key == "" {
		return nil, ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := l.ref(key)
	if err != nil {
		return nil, err
	}

	select {
	case e.ch <- struct{}{}:
		return l.unlocker(key, e), nil
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	case <-l.done:
		l.unref(key, e)
		return nil, ErrClosed
	}
}

// TryLock 非阻塞获取 key 的锁。锁被占用时返回 (nil, nil)。
func (l *Locker) TryLock(key string) (unlock func(), err error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	e, err := l.ref(key)
	if err != nil {
		return nil, err
	}
	select {
	case e.ch <- struct{}{}:
		return l.unlocker(key, e), nil
	default:
		l.unref(key, e)
		return nil, nil
	}
}

// Len 返回当前被持有或等待中的 key 数量。
func (l *Locker) Len() int {
	return int(max(l.count.Load(), 0))
}

// Close 拒绝新的获取请求并唤醒等待者。重复调用返回 [ErrClosed]。
func (l *Locker) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	close(l.done)
	return nil
}
