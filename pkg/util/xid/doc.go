// Package xid 基于 Sonyflake v2 生成 63 位有序唯一 ID。
//
// xwebd 用它为每个连接分配 ID，写入日志与 trace 属性，
// 多实例部署时 ID 不冲突，按时间排序即可还原连接先后。
//
// # 机器 ID
//
// [DefaultMachineID] 依次尝试：
//
//  1. XWEBD_MACHINE_ID 环境变量（0-65535）
//  2. os.Hostname() 的 xxhash 折叠值
//
// 哈希方式存在碰撞风险，多节点部署应显式设置 XWEBD_MACHINE_ID。
//
// # 位布局
//
// 39 位时间（10ms）+ 8 位序列号 + 16 位机器 ID，见 [Decompose]。
package xid
