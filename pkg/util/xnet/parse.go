package xnet

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// ParseRange 把一条白名单条目解析为地址区间，首尾空白会被忽略。
func ParseRange(s string) (netipx.IPRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netipx.IPRange{}, fmt.Errorf("%w: empty entry", ErrInvalidRange)
	}
	// netipx 会丢弃 zone，带 zone 的规则永远匹配不到预期的地址
	if strings.Contains(s, "%") {
		return netipx.IPRange{}, fmt.Errorf("%w: zone is not supported: %s", ErrInvalidRange, s)
	}

	if from, to, ok := strings.Cut(s, "-"); ok {
		return parseSpan(strings.TrimSpace(from), strings.TrimSpace(to))
	}

	if addr, mask, ok := strings.Cut(s, "/"); ok {
		addr, mask = strings.TrimSpace(addr), strings.TrimSpace(mask)
		if strings.Contains(mask, ".") {
			return parseMasked(addr, mask)
		}
		prefix, err := netip.ParsePrefix(addr + "/" + mask)
		if err != nil {
			return netipx.IPRange{}, fmt.Errorf("%w: %w", ErrInvalidRange, err)
		}
		return netipx.RangeOfPrefix(prefix.Masked()), nil
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netipx.IPRange{}, fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}
	addr = addr.Unmap()
	return netipx.IPRangeFrom(addr, addr), nil
}

func parseSpan(fromStr, toStr string) (netipx.IPRange, error) {
	from, err := netip.ParseAddr(fromStr)
	if err != nil {
		return netipx.IPRange{}, fmt.Errorf("%w: range start: %w", ErrInvalidRange, err)
	}
	to, err := netip.ParseAddr(toStr)
	if err != nil {
		return netipx.IPRange{}, fmt.Errorf("%w: range end: %w", ErrInvalidRange, err)
	}
	r := netipx.IPRangeFrom(from.Unmap(), to.Unmap())
	if !r.IsValid() {
		return netipx.IPRange{}, fmt.Errorf("%w: %s-%s", ErrInvalidRange, fromStr, toStr)
	}
	return r, nil
}

// parseMasked 解析 "addr/255.255.255.0" 形式，只支持连续的 IPv4 掩码。
func parseMasked(addrStr, maskStr string) (netipx.IPRange, error) {
	addr, err := netip.ParseAddr(addrStr)
	if err != nil {
		return netipx.IPRange{}, fmt.Errorf("%w: address: %w", ErrInvalidRange, err)
	}
	mask, err := netip.ParseAddr(maskStr)
	if err != nil {
		return netipx.IPRange{}, fmt.Errorf("%w: mask: %w", ErrInvalidRange, err)
	}
	addr, mask = addr.Unmap(), mask.Unmap()
	if !addr.Is4() || !mask.Is4() {
		return netipx.IPRange{}, fmt.Errorf("%w: mask notation is IPv4 only", ErrInvalidRange)
	}

	a, m := addr.As4(), mask.As4()
	base := binary.BigEndian.Uint32(a[:])
	bits := binary.BigEndian.Uint32(m[:])
	// 合法掩码取反后是 2^n-1
	if inv := ^bits; inv&(inv+1) != 0 {
		return netipx.IPRange{}, fmt.Errorf("%w: non-contiguous mask %s", ErrInvalidRange, maskStr)
	}

	start := base & bits
	return netipx.IPRangeFrom(addrFromUint32(start), addrFromUint32(start|^bits)), nil
}

func addrFromUint32(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}

// ParseRanges 解析并合并多条白名单条目，nil 或空切片返回空集合。
// 错误信息带上出错条目的下标。
func ParseRanges(entries []string) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for i, s := range entries {
		r, err := ParseRange(s)
		if err != nil {
			return nil, fmt.Errorf("entry %d %q: %w", i, s, err)
		}
		b.AddRange(r)
	}
	return b.IPSet()
}
