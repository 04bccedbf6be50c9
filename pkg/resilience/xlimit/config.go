package xlimit

import (
	"fmt"
	"time"
)

// DefaultMaxKeys 是未设置 MaxKeys 时同时跟踪的 key 上限。
const DefaultMaxKeys = 10000

// Config 限流配置，字段标签对应配置文件的 key。
type Config struct {
	// Limit 每个 Window 内每个 key 允许的次数，0 表示不限流
	Limit int `koanf:"limit"`
	// Window 补充 Limit 个令牌所需的时间
	Window time.Duration `koanf:"window"`
	// Burst 桶容量，0 表示等于 Limit
	Burst int `koanf:"burst"`
	// MaxKeys 同时跟踪的 key 上限，0 表示 DefaultMaxKeys
	MaxKeys int `koanf:"max_keys"`
}

// Enabled 报告是否启用限流。
func (c Config) Enabled() bool {
	return c.Limit > 0
}

// Validate 校验配置。未启用时只检查字段不为负。
func (c Config) Validate() error {
	if c.Limit < 0 || c.Burst < 0 || c.MaxKeys < 0 || c.Window < 0 {
		return fmt.Errorf("%w: limit, window, burst and max_keys must not be negative", ErrInvalidConfig)
	}
	if c.Enabled() && c.Window == 0 {
		return fmt.Errorf("%w: window is required when limit is set", ErrInvalidConfig)
	}
	return nil
}

func (c Config) burst() int {
	if c.Burst > 0 {
		return c.Burst
	}
	return c.Limit
}

func (c Config) maxKeys() int {
	if c.MaxKeys > 0 {
		return c.MaxKeys
	}
	return DefaultMaxKeys
}

// refill 返回空桶补满所需时间，空闲超过该时间的桶与新桶等价。
func (c Config) refill() time.Duration {
	d := c.Window * time.Duration(c.burst()) / time.Duration(c.Limit)
	return max(d, time.Millisecond)
}
