package xlog

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

var _ LoggerWithLevel = (*xlogger)(nil)

// maxStackSize Stack 记录的堆栈上限
const maxStackSize = 64 << 10

type xlogger struct {
	handler  slog.Handler
	levelVar *slog.LevelVar
	shared   *shared
}

// log 的调用链固定为 业务代码 → Debug/Info/… → log，skip 据此计算。
//
//go:noinline
func (l *xlogger) log(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr, extra ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	if l.shared.addSource {
		var pcs [1]uintptr
		runtime.Callers(3, pcs[:])
		pc = pcs[0]
	}

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(attrs...)
	r.AddAttrs(extra...)
	if err := l.handler.Handle(ctx, r); err != nil {
		l.handleError(err)
	}
}

// handleError 计数并通知 onError，回调内部再次出错不会递归，回调 panic 被吞掉。
func (l *xlogger) handleError(err error) {
	s := l.shared
	s.errors.Add(1)
	if s.onError == nil || !s.inOnError.CompareAndSwap(false, true) {
		return
	}
	defer s.inOnError.Store(false)
	defer func() {
		if recover() != nil {
			s.errors.Add(1)
		}
	}()
	s.onError(err)
}

func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, msg, attrs)
}

func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelInfo, msg, attrs)
}

func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelWarn, msg, attrs)
}

func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelError, msg, attrs)
}

// Stack 在 Error 级别记录日志，并附带当前 goroutine 的堆栈。
func (l *xlogger) Stack(ctx context.Context, msg string, attrs ...slog.Attr) {
	if ctx != nil && !l.handler.Enabled(ctx, slog.LevelError) {
		return
	}
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	for n == len(buf) && len(buf) < maxStackSize {
		buf = make([]byte, min(len(buf)*2, maxStackSize))
		n = runtime.Stack(buf, false)
	}
	l.log(ctx, slog.LevelError, msg, attrs, slog.String(KeyStack, string(buf[:n])))
}

func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	return &xlogger{handler: l.handler.WithAttrs(attrs), levelVar: l.levelVar, shared: l.shared}
}

func (l *xlogger) WithGroup(name string) Logger {
	if name == "" {
		return l
	}
	return &xlogger{handler: l.handler.WithGroup(name), levelVar: l.levelVar, shared: l.shared}
}

// SetLevel 动态设置日志级别，派生 logger 同步生效。
func (l *xlogger) SetLevel(level Level) {
	l.levelVar.Set(slog.Level(level))
}

func (l *xlogger) GetLevel() Level {
	return Level(l.levelVar.Level())
}

func (l *xlogger) Enabled(ctx context.Context, level Level) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.handler.Enabled(ctx, slog.Level(level))
}

// ErrorCount 返回 logger 自身写入失败的累计次数，派生 logger 共享计数。
func ErrorCount(l Logger) uint64 {
	if xl, ok := l.(*xlogger); ok {
		return xl.shared.errors.Load()
	}
	return 0
}

// Rotate 立即轮转 logger 的日志文件（通常由 SIGHUP 触发）。
// 未通过 SetRotation 输出到文件时为空操作。
func Rotate(l Logger) error {
	if xl, ok := l.(*xlogger); ok && xl.shared.rotator != nil {
		return xl.shared.rotator.Rotate()
	}
	return nil
}
