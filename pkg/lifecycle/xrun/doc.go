// Package xrun 提供基于 errgroup + context 的进程生命周期管理。
//
// # 核心概念
//
// 所有服务共享同一个 context：任一服务返回错误或收到终止信号时 context 被取消，
// 服务应监听 ctx.Done() 并优雅退出。
//
//	err := xrun.RunServicesWithOptions(ctx, []xrun.Option{
//	    xrun.WithName("xwebd"),
//	    xrun.WithLogger(logger),
//	}, server, watcher)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 信号触发的正常退出
//	}
//
// # 服务函数
//
//   - [Serve]: 把 Serve/Shutdown 形式的服务器（如 TCP accept 循环）适配为服务
//   - [Ticker]: 周期任务（如统计日志）
//   - [OnSignal]: 每次收到指定信号时执行回调而不退出（如 SIGHUP 轮转日志）
//
// # 错误处理
//
// Wait 返回第一个非 nil 错误。context.Canceled 只有在 Group 自身被取消时才被过滤，
// 此时若存在显式 cause（如 *SignalError）则返回该 cause。
//
// # 设计决策
//
// 不提供全局关闭钩子：关闭逻辑内聚在各服务的 ctx.Done() 处理中，
// 关闭顺序由服务自身决定。
package xrun
