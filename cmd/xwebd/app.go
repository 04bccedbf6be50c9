package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xwebd/internal/server"
	"github.com/omeyang/xwebd/pkg/config/xconf"
	"github.com/omeyang/xwebd/pkg/lifecycle/xrun"
	"github.com/omeyang/xwebd/pkg/observability/xlog"
	"github.com/omeyang/xwebd/pkg/observability/xmetrics"
	"github.com/omeyang/xwebd/pkg/util/xid"
	"github.com/omeyang/xwebd/pkg/util/xsys"
)

// usageError 参数或配置错误，退出码 2。
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xwebd",
		Usage:   "基于固定工作池的静态页面服务器",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "配置文件路径（yaml/json）"},
			&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "监听地址", Value: server.DefaultAddr},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "worker 数量", Value: server.DefaultWorkers},
			&cli.IntFlag{Name: "queue-size", Usage: "队列容量，0 为无界"},
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "页面根目录", Value: "."},
			&cli.StringSliceFlag{Name: "allow", Usage: "客户端白名单（IP、CIDR 或区间），可重复指定"},
			&cli.StringFlag{Name: "log-level", Usage: "日志级别 debug/info/warn/error", Value: "info"},
			&cli.StringFlag{Name: "log-format", Usage: "日志格式 text/json", Value: "text"},
			&cli.StringFlag{Name: "log-file", Usage: "日志文件，为空时输出到 stderr"},
			&cli.DurationFlag{Name: "stats-interval", Usage: "统计日志间隔，0 关闭", Value: server.DefaultStatsInterval},
		},
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run 统一映射退出码。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
		Action: serve,
	}
}

func run(ctx context.Context, args []string) int {
	err := createApp().Run(ctx, args)
	switch {
	case err == nil, errors.Is(err, xrun.ErrSignal):
		return 0
	case isUsageError(err):
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", err)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
}

// isUsageError 识别配置错误与 urfave/cli 的 flag 解析错误。
func isUsageError(err error) bool {
	var ue *usageError
	if errors.As(err, &ue) || errors.Is(err, server.ErrInvalidConfig) {
		return true
	}
	msg := err.Error()
	for _, p := range []string{"flag provided but not defined", "invalid value", "flag needs an argument"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// flagOverrides 把显式设置的命令行选项覆盖到 cfg。
func flagOverrides(cmd *cli.Command, cfg *server.Config) {
	if cmd.IsSet("addr") {
		cfg.Addr = cmd.String("addr")
	}
	if cmd.IsSet("workers") {
		cfg.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("queue-size") {
		cfg.QueueSize = cmd.Int("queue-size")
	}
	if cmd.IsSet("root") {
		cfg.Root = cmd.String("root")
	}
	if cmd.IsSet("allow") {
		cfg.Allow = cmd.StringSlice("allow")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("log-file") {
		cfg.Log.File = cmd.String("log-file")
	}
	if cmd.IsSet("stats-interval") {
		cfg.StatsInterval = cmd.Duration("stats-interval")
	}
}

// loadConfig 按 默认值 → 配置文件 → 命令行 的顺序合成配置。
// 未指定配置文件时返回的 xconf.Config 为 nil。
func loadConfig(cmd *cli.Command) (server.Config, xconf.Config, error) {
	cfg := server.DefaultConfig()
	var src xconf.Config
	if path := cmd.String("config"); path != "" {
		c, err := xconf.New(path)
		if err != nil {
			return cfg, nil, &usageError{err: err}
		}
		if err := c.Unmarshal("", &cfg); err != nil {
			return cfg, nil, &usageError{err: err}
		}
		src = c
	}
	flagOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, src, nil
}

func newLogger(cfg server.LogConfig) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().SetLevelString(cfg.Level).SetFormat(cfg.Format).SetAddSource(cfg.AddSource)
	if cfg.File != "" {
		b.SetRotation(cfg.File, cfg.Rotation)
	}
	l, cleanup, err := b.Build()
	if err != nil {
		return nil, nil, &usageError{err: err}
	}
	return l, cleanup, nil
}

// raiseFileLimit 尽力提升最大打开文件数，失败只告警：默认限制下服务仍可运行。
func raiseFileLimit(ctx context.Context, logger xlog.Logger, want uint64) {
	got, err := xsys.RaiseFileLimit(want)
	if err != nil {
		logger.Warn(ctx, "raise open file limit failed", xlog.Err(err), slog.Uint64("want", want))
		return
	}
	if got < want {
		logger.Warn(ctx, "open file limit capped by hard limit",
			slog.Uint64("want", want), slog.Uint64("limit", got))
		return
	}
	logger.Debug(ctx, "open file limit raised", slog.Uint64("limit", got))
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, src, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, cleanup, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()
	xlog.SetDefault(logger)

	if cfg.MaxOpenFiles > 0 {
		raiseFileLimit(ctx, logger, cfg.MaxOpenFiles)
	}

	opts := []server.Option{server.WithLogger(logger)}
	if ids, err := xid.NewGenerator(); err == nil {
		opts = append(opts, server.WithIDGenerator(ids))
	} else {
		logger.Warn(ctx, "connection id generator unavailable, using sequence", xlog.Err(err))
	}
	// 未配置 OTel SDK 时使用全局 noop provider，开销可忽略
	if obs, err := xmetrics.NewOTelObserver(); err == nil {
		opts = append(opts, server.WithObserver(obs))
	}
	if poolObs, err := xmetrics.NewPoolObserver(); err == nil {
		opts = append(opts, server.WithPoolObserver(poolObs))
	}

	srv, err := server.New(cfg, opts...)
	if err != nil {
		return err
	}

	d := &daemon{cmd: cmd, src: src, srv: srv, logger: logger}
	services := []xrun.Service{
		xrun.ServiceFunc(srv.Run),
		xrun.ServiceFunc(xrun.OnSignal(d.onHangup, syscall.SIGHUP)),
	}
	if cfg.StatsInterval > 0 {
		services = append(services, xrun.ServiceFunc(xrun.Ticker(cfg.StatsInterval, false, srv.LogStats)))
	}
	if src != nil {
		w, err := xconf.Watch(src, d.onConfigChange)
		if err != nil {
			logger.Warn(ctx, "config watcher unavailable", xlog.Err(err))
		} else {
			services = append(services, xrun.ServiceFunc(w.Run))
		}
	}

	logger.Info(ctx, "xwebd starting",
		xlog.Component("xwebd"),
		slog.String("version", Version),
		slog.String("addr", cfg.Addr),
		slog.Int("workers", cfg.Workers),
	)
	return xrun.RunServicesWithOptions(ctx, []xrun.Option{
		xrun.WithName("xwebd"),
		xrun.WithLogger(xlog.Slog(logger)),
		// SIGHUP 由 OnSignal 处理，不作为终止信号
		xrun.WithSignals([]os.Signal{syscall.SIGINT, syscall.SIGTERM}),
	}, services...)
}
