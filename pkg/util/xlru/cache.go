package xlru

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxSize 缓存最大条目数上限。
const maxSize = 1 << 24

// Config 定义缓存配置。
type Config struct {
	// Size 缓存最大条目数。
	Size int `koanf:"size"`

	// TTL 条目过期时间，0 表示永不过期。
	TTL time.Duration `koanf:"ttl"`
}

// Option 定义缓存可选配置函数类型。
type Option[K comparable, V any] func(*options[K, V])

type options[K comparable, V any] struct {
	onEvicted func(key K, value V)
}

// WithOnEvicted 设置条目被淘汰时的回调函数。
//
// 回调在底层库的互斥锁内同步执行，严禁在回调中调用 Cache 的方法，否则死锁。
func WithOnEvicted[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(o *options[K, V]) {
		o.onEvicted = fn
	}
}

// Stats 是缓存命中统计快照。
type Stats struct {
	Hits   uint64
	Misses uint64
	Len    int
}

// Cache 是带 TTL 的 LRU 缓存，所有方法并发安全。
// 必须通过 [New] 创建。Close 后读操作返回零值/false，写操作静默忽略。
type Cache[K comparable, V any] struct {
	lru       *expirable.LRU[K, V]
	hits      atomic.Uint64
	misses    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// New 创建新的 LRU 缓存。
func New[K comparable, V any](cfg Config, opts ...Option[K, V]) (*Cache[K, V], error) {
	if cfg.Size <= 0 {
		return nil, ErrInvalidSize
	}
	if cfg.Size > maxSize {
		return nil, ErrSizeExceedsMax
	}
	if cfg.TTL < 0 {
		return nil, ErrInvalidTTL
	}

	o := &options[K, V]{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	return &Cache[K, V]{
		lru: expirable.NewLRU(cfg.Size, o.onEvicted, cfg.TTL),
	}, nil
}

// Get 获取缓存值并更新 LRU 顺序，计入命中统计。
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	if c.closed.Load() {
		return value, false
	}
	value, ok = c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, ok
}

// Peek 获取缓存值但不更新 LRU 顺序，不计入统计。
func (c *Cache[K, V]) Peek(key K) (value V, ok bool) {
	if c.closed.Load() {
		return value, false
	}
	return c.lru.Peek(key)
}

// Set 设置缓存值，返回是否触发了 LRU 淘汰。
func (c *Cache[K, V]) Set(key K, value V) bool {
	if c.closed.Load() {
		return false
	}
	return c.lru.Add(key, value)
}

// Delete 删除缓存条目，返回键是否存在。
func (c *Cache[K, V]) Delete(key K) bool {
	if c.closed.Load() {
		return false
	}
	return c.lru.Remove(key)
}

// Clear 清空所有缓存条目，会触发淘汰回调。
func (c *Cache[K, V]) Clear() {
	if c.closed.Load() {
		return
	}
	c.lru.Purge()
}

// Len 返回当前条目数，可能包含已过期但尚未清理的条目。
func (c *Cache[K, V]) Len() int {
	if c.closed.Load() {
		return 0
	}
	return c.lru.Len()
}

// Stats 返回命中统计快照。
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Len:    c.Len(),
	}
}

// Close 清空缓存并停止 TTL 清理 goroutine，幂等。
//
// 设计决策: closed 标记与 lru 操作之间存在微小的 TOCTOU 窗口，
// Purge 后的 LRU 仍是有效对象，关闭瞬间的并发操作只会作用于空缓存。
func (c *Cache[K, V]) Close() {
	c.closed.Store(true)
	c.closeOnce.Do(func() {
		c.lru.Purge()
		stopCleanupGoroutine(c.lru)
	})
}

// stopCleanupGoroutine 关闭 expirable.LRU 内部的 done 通道，使清理 goroutine 退出。
//
// 设计决策: golang-lru/v2@v2.0.7 没有公开的 Close，只能通过 reflect + unsafe
// 访问未导出字段 done。字段不存在或类型不符时返回 false（降级为泄漏），
// 由 TestStopCleanupGoroutine_UpstreamStructAssert 在升级时发现。
func stopCleanupGoroutine(lru any) (stopped bool) {
	defer func() {
		// done 已关闭
		if r := recover(); r != nil {
			stopped = false
		}
	}()

	v := reflect.ValueOf(lru)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	doneField := v.Elem().FieldByName("done")
	if !doneField.IsValid() || doneField.Type() != reflect.TypeOf(make(chan struct{})) || doneField.IsNil() {
		return false
	}

	doneCh := *(*chan struct{})(unsafe.Pointer(doneField.UnsafeAddr())) //nolint:gosec // 有意访问内部字段
	close(doneCh)
	return true
}
