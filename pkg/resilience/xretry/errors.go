package xretry

import "errors"

// RetryableError 由能自行声明是否值得重试的错误实现。
type RetryableError interface {
	error
	Retryable() bool
}

// ClassifiedError 给底层错误打上重试分类。
// 通过 [NewPermanentError] 或 [NewTemporaryError] 创建，errors.Is/As 可穿透到 Err。
type ClassifiedError struct {
	Err error
	// Temporary 为 true 时该错误值得重试
	Temporary bool
}

// NewPermanentError 把 err 标记为不可重试，Do 遇到后立即返回。
func NewPermanentError(err error) *ClassifiedError {
	return &ClassifiedError{Err: err}
}

// NewTemporaryError 把 err 标记为可重试。
func NewTemporaryError(err error) *ClassifiedError {
	return &ClassifiedError{Err: err, Temporary: true}
}

func (e *ClassifiedError) Error() string {
	switch {
	case e.Err != nil:
		return e.Err.Error()
	case e.Temporary:
		return "temporary error"
	default:
		return "permanent error"
	}
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Retryable 实现 [RetryableError]。
func (e *ClassifiedError) Retryable() bool { return e.Temporary }

// IsRetryable 判断 err 是否值得重试。
// nil 不重试；链上有 [RetryableError] 时以它的声明为准；其余错误默认重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if !errors.As(err, &re) {
		return true
	}
	return re.Retryable()
}

// IsPermanent 是非 nil 错误上 IsRetryable 的反面。
func IsPermanent(err error) bool {
	return err != nil && !IsRetryable(err)
}
