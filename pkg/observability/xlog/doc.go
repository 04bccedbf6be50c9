// Package xlog 基于 log/slog 的结构化日志库。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、轮转、固定属性）
//   - 自动注入 context 上携带的属性（连接 ID、远端地址等），见 [ContextWithAttrs]
//   - 动态级别调整（运行时热更新）
//   - 全局 Logger 便利函数
//   - 与标准库 *slog.Logger 互通，见 [Slog]
//
// # 创建 Logger
//
// 使用 Builder 模式（first-error-wins：遇到第一个配置错误后，Build 直接返回该错误）：
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xwebd/xwebd.log").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// # 日志级别
//
// LevelDebug(-4)、LevelInfo(0)、LevelWarn(4)、LevelError(8)。
// Level 实现 encoding.TextUnmarshaler，可从配置文件直接反序列化。
//
// # 派生 Logger 与级别控制
//
// [Logger.With] 和 [Logger.WithGroup] 返回 [Logger] 接口。
// 派生 logger 共享父级的 LevelVar，动态级别变更会同步生效。
//
// # 与 *slog.Logger 互通
//
// 只接受 *slog.Logger 的组件（如 xpool）可通过 [Slog] 获得共享同一 handler
// 与级别的 *slog.Logger，context 属性注入同样生效。
package xlog
