// Package xrotate 提供基于 lumberjack 的日志文件轮转。
//
// [Rotator] 实现 io.WriteCloser，可直接作为 xlog 的输出目标，
// 按文件大小自动轮转，并按数量与天数清理备份。所有方法并发安全。
package xrotate
