// Package xnet 提供客户端地址白名单。
//
// 白名单条目支持四种写法，解析后合并为 [*netipx.IPSet]，查询为 O(log n)：
//
//	"192.168.1.10"                单个地址
//	"10.0.0.0/8"                  CIDR
//	"192.168.1.0/255.255.255.0"   IPv4 掩码
//	"10.0.0.1-10.0.0.100"         闭区间
//
// [AllowList] 可在运行中通过 [AllowList.Set] 原子替换规则，
// 空规则表示放行所有地址。
//
// IPv4-mapped IPv6 地址（::ffff:a.b.c.d）在匹配前统一还原为 IPv4，
// 因此双栈监听下的 IPv4 客户端也能命中 IPv4 规则。
package xnet
