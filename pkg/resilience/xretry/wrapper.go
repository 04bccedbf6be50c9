package xretry

import (
	"context"
	"math"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// 设计决策: 以类型别名和变量别名暴露 retry-go 的常用 API，
// 调用方无需直接 import 第三方包，便于替换底层实现。
type (
	// Option 是 retry-go 的配置选项类型
	Option = retry.Option

	// OnRetryFunc 是重试回调函数类型，n 从 0 开始
	OnRetryFunc = retry.OnRetryFunc

	// RetryIfFunc 是重试条件判断函数类型
	RetryIfFunc = retry.RetryIfFunc

	// DelayTypeFunc 是延迟类型函数
	DelayTypeFunc = retry.DelayTypeFunc

	// DelayContext 提供延迟计算所需的配置值
	DelayContext = retry.DelayContext

	// Error 表示重试过程中的错误列表
	Error = retry.Error
)

var (
	// Attempts 设置总尝试次数（包含首次尝试），0 表示无限重试。默认 10。
	Attempts = retry.Attempts

	// Delay 设置重试间隔，默认 100ms。
	Delay = retry.Delay

	// MaxDelay 设置最大重试间隔
	MaxDelay = retry.MaxDelay

	// DelayType 设置延迟类型
	DelayType = retry.DelayType

	// OnRetry 设置重试回调函数
	OnRetry = retry.OnRetry

	// RetryIf 设置重试条件判断函数，会覆盖 Do 的默认判断
	RetryIf = retry.RetryIf

	// LastErrorOnly 只返回最后一个错误
	LastErrorOnly = retry.LastErrorOnly

	// Unrecoverable 将错误标记为不可恢复（不再重试）
	Unrecoverable = retry.Unrecoverable

	// IsRecoverable 检查错误是否可恢复
	IsRecoverable = retry.IsRecoverable
)

// Do 执行带重试的操作，ctx 取消时停止重试。
//
// 默认的重试判断会跳过 Unrecoverable 与 NewPermanentError 标记的错误；
// 调用方传入 RetryIf 会覆盖这一逻辑，需要自行检查 IsRecoverable/IsRetryable。
//
// 延迟语义：默认使用 retry-go 的 CombineDelay(BackOffDelay, RandomDelay)。
// 需要确定的退避时传入 DelayType(ToDelayType(policy))。
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	return retry.New(defaultOpts(ctx, opts)...).Do(fn)
}

// DoWithData 是带返回值的 Do。
func DoWithData[T any](ctx context.Context, fn func() (T, error), opts ...Option) (T, error) {
	return retry.NewWithData[T](defaultOpts(ctx, opts)...).Do(fn)
}

func defaultOpts(ctx context.Context, opts []Option) []Option {
	allOpts := make([]Option, 0, len(opts)+2)
	allOpts = append(allOpts, retry.Context(ctx))
	allOpts = append(allOpts, RetryIf(func(err error) bool {
		if !IsRecoverable(err) {
			return false
		}
		return IsRetryable(err)
	}))
	return append(allOpts, opts...)
}

// ToDelayType 将 BackoffPolicy 适配为 retry-go 的 DelayTypeFunc。
// nil policy 表示零延迟。
func ToDelayType(policy BackoffPolicy) DelayTypeFunc {
	if policy == nil {
		return func(_ uint, _ error, _ DelayContext) time.Duration {
			return 0
		}
	}
	return func(n uint, _ error, _ DelayContext) time.Duration {
		return policy.NextDelay(safeUintToInt(n))
	}
}

// safeUintToInt 超过 MaxInt 的值截断到 MaxInt。
func safeUintToInt(n uint) int {
	if n > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}
