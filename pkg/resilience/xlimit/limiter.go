package xlimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/omeyang/xwebd/pkg/util/xlru"
)

// Result 是一次限流检查的结果。
type Result struct {
	// Allowed 是否放行
	Allowed bool
	// Limit 桶容量
	Limit int
	// Remaining 检查后桶内剩余的整令牌数
	Remaining int
	// RetryAfter 被拒绝时下一个令牌可用前的等待时间
	RetryAfter time.Duration
	Key        string
}

// Stats 是限流器统计快照。
type Stats struct {
	Allowed uint64
	Limited uint64
	// Keys 当前跟踪的 key 数量
	Keys int
}

// Option 配置 Limiter。
type Option func(*Limiter)

// WithClock 替换时间源，用于测试。
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// Limiter 是按 key 的令牌桶限流器，并发安全。
type Limiter struct {
	cfg   Config
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets *xlru.Cache[string, *rate.Limiter]

	allowed atomic.Uint64
	limited atomic.Uint64
}

// New 创建限流器。cfg.Limit 为 0 时返回 ErrDisabled。
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}

	buckets, err := xlru.New[string, *rate.Limiter](xlru.Config{
		Size: cfg.maxKeys(),
		TTL:  cfg.refill(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	l := &Limiter{
		cfg:     cfg,
		limit:   rate.Limit(float64(cfg.Limit) / cfg.Window.Seconds()),
		burst:   cfg.burst(),
		now:     time.Now,
		buckets: buckets,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Allow 为 key 消耗一个令牌。
func (l *Limiter) Allow(key string) Result {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets.Peek(key)
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
	}
	// 每次访问都重新写入以刷新 TTL
	l.buckets.Set(key, b)

	res := Result{Allowed: true, Limit: l.burst, Key: key}
	r := b.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.Allowed = false
		res.RetryAfter = delay
	}
	res.Remaining = max(int(b.TokensAt(now)), 0)
	l.mu.Unlock()

	if res.Allowed {
		l.allowed.Add(1)
	} else {
		l.limited.Add(1)
	}
	return res
}

// Stats 返回统计快照。
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	keys := l.buckets.Len()
	l.mu.Unlock()
	return Stats{
		Allowed: l.allowed.Load(),
		Limited: l.limited.Load(),
		Keys:    keys,
	}
}

// Config 返回创建时的配置。
func (l *Limiter) Config() Config {
	return l.cfg
}

// Close 释放桶缓存的后台清理 goroutine。
func (l *Limiter) Close() {
	l.buckets.Close()
}
