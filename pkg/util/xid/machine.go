package xid

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// EnvMachineID 直接指定机器 ID 的环境变量（0-65535）。
const EnvMachineID = "XWEBD_MACHINE_ID"

// 测试注入点
var osHostname = os.Hostname

// DefaultMachineID 获取机器 ID：先读 XWEBD_MACHINE_ID，再回退到主机名哈希。
func DefaultMachineID() (uint16, error) {
	if s := os.Getenv(EnvMachineID); s != "" {
		id, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid %s value %q: %w", ErrInvalidConfig, EnvMachineID, s, err)
		}
		return uint16(id), nil
	}

	hostname, err := osHostname()
	if err != nil {
		return 0, fmt.Errorf("xid: resolve hostname: %w", err)
	}
	if hostname == "" {
		return 0, errors.New("xid: os.Hostname returned empty string")
	}
	return hashToMachineID(hostname), nil
}

// hashToMachineID 把 64 位 xxhash 的四个 16 位分段异或折叠为机器 ID，
// 比直接截断低 16 位分布更均匀。
func hashToMachineID(s string) uint16 {
	h := xxhash.Sum64String(s)
	return uint16(h) ^ uint16(h>>16) ^ uint16(h>>32) ^ uint16(h>>48)
}
