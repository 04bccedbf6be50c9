package xnet

import (
	"net"
	"net/netip"
	"sync/atomic"

	"go4.org/netipx"
)

// AllowList 是可热更新的客户端地址白名单，并发安全。
// 零值放行所有地址。
type AllowList struct {
	// nil 表示不限制
	set atomic.Pointer[netipx.IPSet]
}

// NewAllowList 创建白名单，entries 为空时放行所有地址。
func NewAllowList(entries []string) (*AllowList, error) {
	a := &AllowList{}
	if err := a.Set(entries); err != nil {
		return nil, err
	}
	return a, nil
}

// Set 原子替换规则。解析失败时保留原规则。
func (a *AllowList) Set(entries []string) error {
	if len(entries) == 0 {
		a.set.Store(nil)
		return nil
	}
	set, err := ParseRanges(entries)
	if err != nil {
		return err
	}
	a.set.Store(set)
	return nil
}

// Enabled 报告当前是否有生效的规则。
func (a *AllowList) Enabled() bool {
	return a.set.Load() != nil
}

// Allows 报告 addr 是否在白名单内。无效地址只在未启用规则时放行。
func (a *AllowList) Allows(addr netip.Addr) bool {
	set := a.set.Load()
	if set == nil {
		return true
	}
	return addr.IsValid() && set.Contains(addr.Unmap())
}

// AllowsNetAddr 对 net.Addr 做 [AllowList.Allows] 判断。
func (a *AllowList) AllowsNetAddr(addr net.Addr) bool {
	if !a.Enabled() {
		return true
	}
	ip, err := AddrFromNet(addr)
	if err != nil {
		return false
	}
	return a.Allows(ip)
}

// AddrFromNet 提取 TCP/UDP/IP 地址中的 IP，已去除 IPv4 映射与 zone。
func AddrFromNet(addr net.Addr) (netip.Addr, error) {
	var ip netip.Addr
	switch v := addr.(type) {
	case *net.TCPAddr:
		ip = v.AddrPort().Addr()
	case *net.UDPAddr:
		ip = v.AddrPort().Addr()
	case *net.IPAddr:
		ip, _ = netip.AddrFromSlice(v.IP)
	default:
		if addr != nil {
			if ap, err := netip.ParseAddrPort(addr.String()); err == nil {
				ip = ap.Addr()
			}
		}
	}
	if !ip.IsValid() {
		return netip.Addr{}, ErrInvalidAddress
	}
	return ip.Unmap().WithZone(""), nil
}
