package xbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

type settings struct {
	tripPolicy    TripPolicy
	successPolicy SuccessPolicy
	timeout       time.Duration
	interval      time.Duration
	maxRequests   uint32
	onStateChange func(name string, from, to State)
}

// Option 熔断器配置选项
type Option func(*settings)

// WithTripPolicy 设置熔断判定策略，默认连续失败 5 次触发熔断。
func WithTripPolicy(p TripPolicy) Option {
	return func(s *settings) {
		if p != nil {
			s.tripPolicy = p
		}
	}
}

// WithSuccessPolicy 设置成功判定策略。
//
// 某些错误不代表下游故障（如文件不存在），应判定为成功，不计入熔断统计。
func WithSuccessPolicy(p SuccessPolicy) Option {
	return func(s *settings) {
		s.successPolicy = p
	}
}

// WithTimeout 设置 Open 恢复到 HalfOpen 的时间，默认 60 秒。
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithInterval 设置 Closed 状态下清除统计的周期，默认 0（持续累积）。
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.interval = d
		}
	}
}

// WithMaxRequests 设置 HalfOpen 状态下允许通过的最大请求数，默认 1。
func WithMaxRequests(n uint32) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxRequests = n
		}
	}
}

// WithOnStateChange 设置状态变化回调，可用于日志与告警。
func WithOnStateChange(f func(name string, from, to State)) Option {
	return func(s *settings) {
		s.onStateChange = f
	}
}

// Breaker 是返回值类型为 T 的熔断器。
type Breaker[T any] struct {
	name string
	cb   *gobreaker.CircuitBreaker[T]
}

// New 创建熔断器。name 用于日志和错误信息。
// 默认配置：
//   - 熔断策略：连续失败 5 次触发熔断
//   - 超时时间：60 秒
//   - HalfOpen 最大请求数：1
func New[T any](name string, opts ...Option) *Breaker[T] {
	s := &settings{
		tripPolicy:  NewConsecutiveFailures(5),
		timeout:     60 * time.Second,
		maxRequests: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: s.maxRequests,
		Interval:    s.interval,
		Timeout:     s.timeout,
		ReadyToTrip: s.tripPolicy.ReadyToTrip,
	}
	if s.successPolicy != nil {
		st.IsSuccessful = s.successPolicy.IsSuccessful
	}
	if s.onStateChange != nil {
		st.OnStateChange = s.onStateChange
	}

	return &Breaker[T]{
		name: name,
		cb:   gobreaker.NewCircuitBreaker[T](st),
	}
}

// Execute 执行受熔断器保护的操作。
//
// ctx 仅用于入口检查，已取消时直接返回 ctx 错误，不计入统计。
// 熔断器拒绝请求时 fn 不会被调用，返回 *BreakerError。
func (b *Breaker[T]) Execute(ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		return zero, ErrNilContext
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	result, err := b.cb.Execute(fn)
	if err != nil {
		return result, wrapBreakerError(err, b.name)
	}
	return result, nil
}

// Name 返回熔断器名称
func (b *Breaker[T]) Name() string {
	return b.name
}

// State 返回熔断器当前状态
func (b *Breaker[T]) State() State {
	return b.cb.State()
}

// Counts 返回当前统计计数
func (b *Breaker[T]) Counts() Counts {
	return b.cb.Counts()
}
