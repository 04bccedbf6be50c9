package xbreaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// 参数校验错误
var (
	// ErrNilContext 传入的 context 为 nil
	ErrNilContext = errors.New("xbreaker: context cannot be nil")

	// ErrNilFunc 传入的操作函数为 nil
	ErrNilFunc = errors.New("xbreaker: function cannot be nil")
)

// 熔断器错误
var (
	// ErrTooManyRequests 半开状态下请求过多
	ErrTooManyRequests = gobreaker.ErrTooManyRequests

	// ErrOpenState 熔断器处于打开状态
	ErrOpenState = gobreaker.ErrOpenState
)

// BreakerError 熔断器拒绝请求时返回的错误。
//
// 实现 Retryable() 返回 false：熔断器打开说明下游不可用，重试无意义。
type BreakerError struct {
	Err   error  // ErrOpenState 或 ErrTooManyRequests
	Name  string // 熔断器名称
	State State  // 拒绝时的状态
}

func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

func (e *BreakerError) Unwrap() error {
	return e.Err
}

// Retryable 实现 xretry.RetryableError 接口。
func (e *BreakerError) Retryable() bool {
	return false
}

// wrapBreakerError 只包装直接的 sentinel error，不遍历错误链，
// 避免把内层熔断器的拒绝归因到外层熔断器。
//
// 设计决策: 状态从错误类型推导，而不是在 Execute 返回后查询 State()，
// 后者与其他 goroutine 触发的状态变化存在竞态。
func wrapBreakerError(err error, name string) error {
	if err == nil {
		return nil
	}
	var be *BreakerError
	if errors.As(err, &be) {
		return err
	}
	//nolint:errorlint // 只匹配当前熔断器直接返回的 sentinel
	switch err {
	case gobreaker.ErrOpenState:
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case gobreaker.ErrTooManyRequests:
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	default:
		return err
	}
}

// IsOpen 检查错误是否是熔断器打开错误。
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState)
}

// IsTooManyRequests 检查错误是否是半开状态请求过多错误。
func IsTooManyRequests(err error) bool {
	return errors.Is(err, gobreaker.ErrTooManyRequests)
}

// IsBreakerError 检查错误是否由熔断器拒绝产生，可用于区分熔断和业务错误。
func IsBreakerError(err error) bool {
	return IsOpen(err) || IsTooManyRequests(err)
}
