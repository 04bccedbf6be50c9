package xlimit

import "errors"

var (
	// ErrInvalidConfig 表示限流配置无效
	ErrInvalidConfig = errors.New("xlimit: invalid config")

	// ErrDisabled 表示 Limit 为 0，不应创建限流器
	ErrDisabled = errors.New("xlimit: limiter disabled")
)
