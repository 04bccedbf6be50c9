package xlog

import "log/slog"

// Slog 返回与 l 共享 handler 和级别的 *slog.Logger。
//
// 非本包实现的 Logger 没有可共享的 handler，此时返回 slog.Default()。
func Slog(l Logger) *slog.Logger {
	if xl, ok := l.(*xlogger); ok {
		return slog.New(xl.handler)
	}
	return slog.Default()
}
