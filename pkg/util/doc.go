// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xfile: 路径解析，拒绝路径遍历与符号链接逃逸
//   - xid: 基于 sonyflake 的唯一 ID 生成
//   - xkeylock: 基于 key 的进程内互斥锁，支持 context 超时和非阻塞获取
//   - xlru: LRU 缓存，泛型支持、自动 TTL 过期
//   - xnet: 客户端 IP 白名单，基于 net/netip + go4.org/netipx
//   - xpool: 固定 worker 数的任务池，共享队列、优雅关闭
//   - xsys: 系统资源限制管理，文件描述符上限
//
// 设计原则：
//   - 安全处理路径遍历和符号链接
//   - 跨平台兼容
package util
