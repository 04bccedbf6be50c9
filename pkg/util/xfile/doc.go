// Package xfile 提供带路径安全检查的文件系统工具。
//
//   - [SanitizePath]: 规范化文件路径，拒绝相对路径穿越与目录路径
//   - [SafeJoin]: 把相对路径拼接到根目录，保证结果不逃逸出根目录
//   - [ResolveIn]: 在 SafeJoin 基础上解析符号链接后再次校验
//   - [EnsureDir]: 确保文件的父目录存在
//
// 路径穿越按路径段精确匹配，只有独立的 ".." 段才会被拒绝，
// "..config" 这类合法文件名不受影响。
//
// 本包处理文件系统路径而非 URL：来自 HTTP 请求的路径必须先完成 URL 解码。
package xfile
