// Package xlru 提供带 TTL 的泛型 LRU 缓存。
//
// xlru 基于 github.com/hashicorp/golang-lru/v2/expirable 封装，
// 在其之上增加命中统计与可停止的后台清理。
//
// # 配置
//
//   - Size：缓存最大条目数，必须 > 0 且 ≤ 16,777,216
//   - TTL：条目过期时间，0 表示永不过期
//
// # 注意事项
//
//   - TTL 从 Set 时刻开始计算，Set 覆盖已有 key 时刷新 TTL，Get 不刷新
//   - 淘汰回调在锁内执行，严禁在回调中调用 Cache 自身方法
//   - 使用完毕后应调用 Close() 停止清理 goroutine
//   - Close 通过 reflect+unsafe 访问底层库未导出字段，升级 golang-lru 时需验证
package xlru
