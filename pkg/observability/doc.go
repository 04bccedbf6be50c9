// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展
//   - xmetrics: 统一观测接口（span 与指标），OpenTelemetry 实现
//   - xsampling: 日志采样策略
//   - xrotate: 日志文件轮转
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 日志字段通过 context 传递到每个连接
//   - 支持动态级别控制和采样
package observability
