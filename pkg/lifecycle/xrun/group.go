package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"
)

// Group 管理多个服务的并发运行和协调关闭。
//
// Go、GoWithName、Cancel 可并发调用；Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 context 在任一服务返回错误或 Cancel 时取消。
// ctx 为 nil 时使用 context.Background()。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
	}, egCtx
}

// Go 在新 goroutine 中运行 fn，fn 返回非 nil 错误时取消其他服务。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，并记录服务的启动与退出日志。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		attrs := []any{slog.String("group", g.opts.name), slog.String("service", name)}
		g.opts.logger.Debug("service starting", attrs...)

		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn("service exited with error", append(attrs, slog.Any("error", err))...)
		} else {
			g.opts.logger.Debug("service stopped", attrs...)
		}
		return err
	})
}

// Wait 等待所有服务退出。
//
// 返回第一个非 nil 错误。Group 被主动取消时 context.Canceled 会被过滤，
// 若 Cancel 携带了 cause（如 *SignalError）则返回该 cause。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	g.opts.logger.Debug("all services stopped", slog.String("group", g.opts.name))

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	// context.Canceled 来自服务内部（Group 未被取消）时原样返回
	if err != nil && g.causeCtx.Err() == nil {
		return err
	}
	if g.causeCtx.Err() != nil {
		if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
	}
	return nil
}

// Cancel 取消所有服务，cause 会成为 Wait 的返回值。
// cause 不应包装 context.Canceled，否则会被当作普通取消过滤掉。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 context。
func (g *Group) Context() context.Context {
	return g.ctx
}

// Service 可被 RunServicesWithOptions 管理的服务。
type Service interface {
	// Run 阻塞直到 ctx 取消或出错，ctx 取消时应优雅关闭后返回。
	Run(ctx context.Context) error
}

// ServiceFunc 把函数适配为 Service。
type ServiceFunc func(ctx context.Context) error

func (f ServiceFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// RunServicesWithOptions 运行多个 Service，监听终止信号并协调关闭，
// 收到信号时返回 *SignalError。
func RunServicesWithOptions(ctx context.Context, opts []Option, services ...Service) error {
	return runGroup(ctx, opts, func(g *Group) {
		for _, svc := range services {
			if svc == nil {
				g.Go(func(context.Context) error { return ErrNilService })
				continue
			}
			g.Go(svc.Run)
		}
	})
}

func runGroup(ctx context.Context, opts []Option, setup func(g *Group)) error {
	g, _ := NewGroup(ctx, opts...)

	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		// 空列表等价于默认列表：signal.Notify 无参调用会订阅所有信号
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		g.Go(func(ctx context.Context) error {
			sig, ok := waitSignal(ctx, signals)
			if !ok {
				return ctx.Err()
			}
			g.opts.logger.Info("received signal",
				slog.String("group", g.opts.name),
				slog.String("signal", sig.String()),
			)
			g.cancel(&SignalError{Signal: sig})
			return nil
		})
	}

	setup(g)
	return g.Wait()
}

// waitSignal 等待 signals 中任一信号或 ctx 取消。
func waitSignal(ctx context.Context, signals []os.Signal) (os.Signal, bool) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	select {
	case sig := <-testSigChan(ctx):
		return sig, true
	case sig := <-sigCh:
		return sig, true
	case <-ctx.Done():
		return nil, false
	}
}
