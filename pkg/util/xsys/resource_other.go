//go:build !unix

package xsys

// GetFileLimit 在非 Unix 平台上返回 [ErrUnsupportedPlatform]。
func GetFileLimit() (soft, hard uint64, err error) {
	return 0, 0, ErrUnsupportedPlatform
}

// RaiseFileLimit 在非 Unix 平台上返回 [ErrUnsupportedPlatform]，参数校验照常执行。
func RaiseFileLimit(want uint64) (uint64, error) {
	if want == 0 {
		return 0, ErrInvalidFileLimit
	}
	return 0, ErrUnsupportedPlatform
}
