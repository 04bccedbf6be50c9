package xlog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xwebd/pkg/observability/xrotate"
)

// ErrInvalidOption Builder 配置无效
var ErrInvalidOption = errors.New("xlog: invalid option")

// Builder 日志配置构建器
type Builder struct {
	output    io.Writer
	levelVar  *slog.LevelVar
	format    string
	addSource bool
	attrs     []slog.Attr
	rotator   *xrotate.Rotator
	onError   func(error)
	err       error
}

// New 创建配置构建器，默认输出到 stderr、Info 级别、text 格式。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:   os.Stderr,
		levelVar: levelVar,
		format:   "text",
	}
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w == nil {
		b.setErr(fmt.Errorf("%w: nil output", ErrInvalidOption))
		return b
	}
	b.output = w
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.setErr(err)
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空值使用 text。
func (b *Builder) SetFormat(format string) *Builder {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = f
	default:
		b.setErr(fmt.Errorf("%w: unknown format %q", ErrInvalidOption, format))
	}
	return b
}

// SetAddSource 是否在日志中添加源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetAttrs 添加每条日志都携带的固定属性（如服务名、实例 ID）。
func (b *Builder) SetAttrs(attrs ...slog.Attr) *Builder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

// SetRotation 输出到带轮转的日志文件，cfg 零值字段使用 xrotate 默认值。
// Build 返回的 cleanup 负责关闭该文件。
func (b *Builder) SetRotation(filename string, cfg xrotate.Config) *Builder {
	r, err := xrotate.New(filename, cfg)
	if err != nil {
		b.setErr(err)
		return b
	}
	b.rotator = r
	b.output = r
	return b
}

// SetOnError 设置内部错误回调（Handler.Handle 失败时调用）。
// 回调在写日志的 goroutine 上同步执行，不得再写同一个 logger。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build 构建 Logger 实例
//
// 返回值：
//   - LoggerWithLevel: 日志实例，同时支持动态级别控制
//   - func() error: 清理函数，关闭轮转文件；可重复调用
//   - error: 第一个配置错误
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		if b.rotator != nil {
			_ = b.rotator.Close()
		}
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
	}
	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}
	handler = &contextHandler{base: handler}
	if len(b.attrs) > 0 {
		handler = handler.WithAttrs(b.attrs)
	}

	logger := &xlogger{
		handler:  handler,
		levelVar: b.levelVar,
		shared: &shared{
			onError:   b.onError,
			addSource: b.addSource,
			rotator:   b.rotator,
		},
	}

	var once sync.Once
	var closeErr error
	rotator := b.rotator
	cleanup := func() error {
		once.Do(func() {
			if rotator != nil {
				closeErr = rotator.Close()
			}
		})
		return closeErr
	}
	return logger, cleanup, nil
}

// shared 派生 logger 之间共享的状态
type shared struct {
	onError   func(error)
	addSource bool
	rotator   *xrotate.Rotator
	errors    atomic.Uint64
	inOnError atomic.Bool
}
