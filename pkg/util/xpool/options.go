package xpool

import "log/slog"

// Option 定义 Pool 可选配置函数类型。
type Option func(*options)

type options struct {
	logger    *slog.Logger
	observer  Observer
	name      string
	queueSize int
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
	}
}

// WithLogger 设置默认日志 Observer 使用的 logger。
// 默认使用 slog.Default()。传入 nil 将被忽略，保持使用默认值。
// 通过 WithObserver 注入自定义 Observer 后，日志 Observer 仍然保留，
// 两者按顺序接收事件。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 注入额外的事件 Observer（如 metrics）。
// 多次调用会组合所有 Observer。传入 nil 将被忽略。
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs == nil {
			return
		}
		if o.observer == nil {
			o.observer = obs
			return
		}
		o.observer = Observers(o.observer, obs)
	}
}

// WithName 设置 pool 名称，用于在多实例场景下区分日志与指标来源。
// 默认为空字符串。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithQueueSize 设置有界队列容量。
// 默认 0 表示无界队列（Submit 永不因容量失败）；
// 大于 0 时队列满会返回 ErrQueueFull 而不是阻塞调用方。
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}
