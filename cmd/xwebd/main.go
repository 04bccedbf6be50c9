// xwebd 是基于固定大小工作池的静态页面服务器。
//
// 用法:
//
//	xwebd [选项]
//
// 选项:
//
//	-c, --config          配置文件路径（yaml/json），修改后自动热加载
//	-a, --addr            监听地址 (默认: 127.0.0.1:7878)
//	-w, --workers         worker 数量 (默认: 4)
//	    --queue-size      队列容量，0 为无界 (默认: 0)
//	-r, --root            页面根目录 (默认: .)
//	    --allow           客户端白名单，可重复指定
//	    --log-level       日志级别 debug/info/warn/error
//	    --log-format      日志格式 text/json
//	    --log-file        日志文件，SIGHUP 触发轮转
//	    --stats-interval  统计日志间隔，0 关闭
//
// 命令行选项优先于配置文件。
//
// 信号:
//
//	SIGINT/SIGTERM  优雅关闭：停止 accept，等待排队与执行中的连接处理完毕
//	SIGHUP          轮转日志文件并重新加载配置文件
//
// 退出码:
//
//	0: 正常退出（包括收到终止信号）
//	1: 运行错误（如端口占用）
//	2: 参数或配置错误
package main

import (
	"context"
	"os"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args))
}
