// Package server 实现 xwebd 的 TCP 接入层：accept 循环把每个连接作为一个任务
// 提交到 xpool 工作池，worker 读取请求行前缀、匹配路由并返回静态页面。
//
// 请求处理刻意保持最小：只做一次有界读取，用字节前缀匹配请求行，
// 不解析 HTTP 头，也不支持 keep-alive。
//
// 页面读取经过 xlru 缓存与 xbreaker 熔断，fsnotify 监听根目录以失效缓存；
// 客户端地址经 netipx 白名单过滤；连接 ID 由 xid 生成。
//
// 关闭顺序：关闭监听 → 工作池优雅关闭（排队与执行中的连接照常完成）→
// 停止页面监听与缓存。
package server
