//go:build unix

package xsys

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// 测试中替换以覆盖错误路径，替换它们的测试不能并行。
var (
	getrlimit = unix.Getrlimit
	setrlimit = unix.Setrlimit
)

var fileLimitMu sync.Mutex

// GetFileLimit 返回当前进程 RLIMIT_NOFILE 的 soft 与 hard 值。
func GetFileLimit() (soft, hard uint64, err error) {
	var rl unix.Rlimit
	if err := getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, 0, fmt.Errorf("xsys: getrlimit RLIMIT_NOFILE: %w", err)
	}
	return rl.Cur, rl.Max, nil
}

// RaiseFileLimit 把最大打开文件数的 soft limit 提升到 want，返回生效后的 soft 值。
//
// soft 已不小于 want 时不做修改。want 超过 hard 时先尝试一起提升 hard
// （需要 CAP_SYS_RESOURCE），没有权限则退而把 soft 提到 hard。
// hard limit 永远不会被降低。
func RaiseFileLimit(want uint64) (uint64, error) {
	if want == 0 {
		return 0, ErrInvalidFileLimit
	}

	fileLimitMu.Lock()
	defer fileLimitMu.Unlock()

	var rl unix.Rlimit
	if err := getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, fmt.Errorf("xsys: getrlimit RLIMIT_NOFILE: %w", err)
	}
	if rl.Cur >= want {
		return rl.Cur, nil
	}

	if want > rl.Max {
		raised := unix.Rlimit{Cur: want, Max: want}
		err := setrlimit(unix.RLIMIT_NOFILE, &raised)
		if err == nil {
			return want, nil
		}
		if !errors.Is(err, unix.EPERM) {
			return rl.Cur, fmt.Errorf("xsys: setrlimit RLIMIT_NOFILE: %w", err)
		}
		if rl.Cur >= rl.Max {
			return rl.Cur, nil
		}
		want = rl.Max
	}

	next := unix.Rlimit{Cur: want, Max: rl.Max}
	if err := setrlimit(unix.RLIMIT_NOFILE, &next); err != nil {
		return rl.Cur, fmt.Errorf("xsys: setrlimit RLIMIT_NOFILE: %w", err)
	}
	return want, nil
}
