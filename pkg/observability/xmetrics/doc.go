// Package xmetrics 提供统一的可观测性接口（metrics + tracing）。
//
// # 设计理念
//
// xmetrics 仅定义最小化接口：Observer/Span/Attr，
// 业务代码只依赖接口；具体实现可替换。
// 默认实现基于 OpenTelemetry，兼容主流可观测栈。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xwebd.server",
//		Operation: "serve_conn",
//		Kind:      xmetrics.KindServer,
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # Pool 指标
//
// [NewPoolObserver] 把 xpool 事件转换为 OTel 指标，可与日志 Observer 组合：
//
//	metrics, _ := xmetrics.NewPoolObserver()
//	pool, _ := xpool.New(4, xpool.WithObserver(metrics))
//
// # 指标命名
//
// 统一指标：
//   - xwebd.operation.total
//   - xwebd.operation.duration
//   - xwebd.pool.tasks / xwebd.pool.task.duration
//   - xwebd.pool.busy / xwebd.pool.workers / xwebd.pool.respawns
//
// 统一属性：component / operation / status，pool 指标附带 pool / result。
package xmetrics
