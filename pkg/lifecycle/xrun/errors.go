package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因收到系统信号而终止，使用 errors.Is 判断。
	ErrSignal = errors.New("received signal")

	// ErrInvalidInterval Ticker 的间隔必须为正数。
	ErrInvalidInterval = errors.New("xrun: interval must be positive")

	// ErrNilFunc 服务函数为 nil。
	ErrNilFunc = errors.New("xrun: nil function")

	// ErrNilService 服务为 nil。
	ErrNilService = errors.New("xrun: nil service")
)

// SignalError 记录触发终止的信号。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "received signal <nil>"
	}
	return fmt.Sprintf("received signal %s", e.Signal)
}

// Unwrap 返回 ErrSignal，使 errors.Is(err, ErrSignal) 成立。
func (e *SignalError) Unwrap() error {
	return ErrSignal
}
