package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xwebd/internal/server"
	"github.com/omeyang/xwebd/pkg/config/xconf"
	"github.com/omeyang/xwebd/pkg/observability/xlog"
)

// daemon 处理运行期的配置热加载与日志轮转。
type daemon struct {
	cmd    *cli.Command
	src    xconf.Config // nil 表示没有配置文件
	srv    *server.Server
	logger xlog.LoggerWithLevel
}

// onHangup 响应 SIGHUP：轮转日志文件，然后重新读取配置文件。
func (d *daemon) onHangup(ctx context.Context, sig os.Signal) {
	d.logger.Info(ctx, "received signal", xlog.Status(sig.String()))
	if err := xlog.Rotate(d.logger); err != nil {
		d.logger.Error(ctx, "rotate log file failed", xlog.Err(err))
	}
	if d.src == nil {
		return
	}
	if err := d.src.Reload(); err != nil {
		d.logger.Error(ctx, "reload config failed", xlog.Err(err))
		return
	}
	d.apply(ctx)
}

// onConfigChange 是配置文件监视器的回调，xconf 已完成 Reload。
func (d *daemon) onConfigChange(_ xconf.Config, err error) {
	ctx := context.Background()
	if err != nil {
		d.logger.Error(ctx, "reload config failed", xlog.Err(err))
		return
	}
	d.apply(ctx)
}

// apply 应用可热更新的配置项：日志级别、客户端白名单与页面缓存。
func (d *daemon) apply(ctx context.Context) {
	cfg := server.DefaultConfig()
	if err := d.src.Unmarshal("", &cfg); err != nil {
		d.logger.Error(ctx, "decode config failed", xlog.Err(err))
		return
	}
	flagOverrides(d.cmd, &cfg)

	if lvl, err := xlog.ParseLevel(cfg.Log.Level); err != nil {
		d.logger.Warn(ctx, "invalid log level, keeping current", xlog.Err(err))
	} else if lvl != d.logger.GetLevel() {
		d.logger.SetLevel(lvl)
		d.logger.Info(ctx, "log level changed", xlog.Status(lvl.String()))
	}
	if err := d.srv.Reload(cfg); err != nil {
		d.logger.Error(ctx, "apply config failed", xlog.Err(err))
	}
}
