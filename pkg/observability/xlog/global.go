package xlog

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// globalLogger 全局 Logger，nil 表示尚未初始化
var globalLogger atomic.Pointer[LoggerWithLevel]

// Default 返回全局 Logger，首次调用时惰性创建默认实例（stderr、Info、text）。
//
// 适用于命令行入口等简单场景，服务组件推荐显式注入 Logger。
func Default() LoggerWithLevel {
	if l := globalLogger.Load(); l != nil {
		return *l
	}
	// 默认参数不会构建失败
	l, _, _ := New().Build()
	if globalLogger.CompareAndSwap(nil, &l) {
		return l
	}
	return *globalLogger.Load()
}

// SetDefault 替换全局 Logger，nil 会被忽略。
// 同时把 slog.Default() 指向同一 handler，使只使用标准库的代码输出一致。
func SetDefault(l LoggerWithLevel) {
	if l == nil {
		return
	}
	globalLogger.Store(&l)
	if xl, ok := l.(*xlogger); ok {
		slog.SetDefault(slog.New(xl.handler))
	}
}

// Info 使用全局 Logger 记录 Info 级别日志
func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Info(ctx, msg, attrs...)
}

// Warn 使用全局 Logger 记录 Warn 级别日志
func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Warn(ctx, msg, attrs...)
}

// Error 使用全局 Logger 记录 Error 级别日志
func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Error(ctx, msg, attrs...)
}
