// Package xkeylock 提供基于 key 的进程内互斥锁。
//
// 典型用途是合并同一资源的并发加载：多个 goroutine 同时未命中缓存时，
// 只有持有 key 锁的那个去读盘，其余等待后重新查缓存。
//
// # 特性
//
//   - Lock 支持 ctx 取消与超时
//   - TryLock 非阻塞获取
//   - 分片 map（xxhash 取模），默认 32 分片，减少管理锁争用
//   - 条目按引用计数回收，空闲 key 不占内存
//   - Close 拒绝新请求并唤醒所有等待者，已持有的锁不受影响
//
// 锁不可重入，与 sync.Mutex 一致。
package xkeylock
