package xrun

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultSignals 返回默认的终止信号：SIGINT、SIGTERM、SIGQUIT。
//
// SIGHUP 不在其中：服务进程通常用它触发日志轮转或配置重载，见 [OnSignal]。
// 每次调用返回新切片。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

// 设计决策: 测试信号通道通过 context 注入，测试无需向进程发送真实信号。
type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// Ticker 返回周期执行 fn 的服务函数，fn 返回错误时服务退出。
// immediate 为 true 时启动即执行一次。
func Ticker(interval time.Duration, immediate bool, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if fn == nil {
			return ErrNilFunc
		}
		if immediate {
			// 已取消的 ctx 不触发业务副作用
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx); err != nil {
				return err
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// OnSignal 返回每次收到 signals 之一时调用 fn 的服务函数，直到 ctx 取消。
// fn 的错误不会终止服务，由 fn 自行记录。
func OnSignal(fn func(ctx context.Context, sig os.Signal), signals ...os.Signal) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if fn == nil {
			return ErrNilFunc
		}
		if len(signals) == 0 {
			signals = []os.Signal{syscall.SIGHUP}
		}
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, signals...)
		defer signal.Stop(sigCh)

		testc := testSigChan(ctx)
		for {
			select {
			case sig := <-sigCh:
				fn(ctx, sig)
			case sig := <-testc:
				fn(ctx, sig)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Server 是 Serve 阻塞运行、Shutdown 触发优雅关闭的服务器，
// 如 TCP accept 循环或 *http.Server 的包装。
type Server interface {
	Serve() error
	Shutdown(ctx context.Context) error
}

// ErrServerClosed 由 Server.Serve 在 Shutdown 之后返回，表示正常关闭。
var ErrServerClosed = errors.New("xrun: server closed")

// Serve 把 Server 适配为服务函数：ctx 取消时调用 Shutdown，
// shutdownTimeout 不大于 0 表示不设超时。
//
// Serve 返回 ErrServerClosed 时视为正常关闭，返回 Shutdown 的结果；
// 其他错误（如端口占用）直接返回。
func Serve(server Server, shutdownTimeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if server == nil {
			return ErrNilService
		}
		shutdownErr := make(chan error, 1)
		serveDone := make(chan struct{})

		go func() {
			select {
			case <-ctx.Done():
				sctx := context.Background()
				if shutdownTimeout > 0 {
					var cancel context.CancelFunc
					sctx, cancel = context.WithTimeout(sctx, shutdownTimeout)
					defer cancel()
				}
				shutdownErr <- server.Shutdown(sctx)
			case <-serveDone:
			}
		}()

		err := server.Serve()
		if !errors.Is(err, ErrServerClosed) {
			close(serveDone)
			return err
		}
		// ctx 驱动的关闭：等待 Shutdown 结果；外部直接关闭：返回 nil
		select {
		case err := <-shutdownErr:
			return err
		case <-ctx.Done():
			return <-shutdownErr
		default:
			close(serveDone)
			return nil
		}
	}
}
