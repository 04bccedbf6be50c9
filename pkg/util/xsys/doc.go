// Package xsys 管理进程级资源限制。
//
//   - [GetFileLimit]：查询 RLIMIT_NOFILE 的 soft/hard 值
//   - [RaiseFileLimit]：把 soft limit 提升到目标值，不会降低现有限制
//
// 非 Unix 平台返回 [ErrUnsupportedPlatform]。
package xsys
