package xnet

import "errors"

var (
	// ErrInvalidAddress 地址无法识别为 IP（如 Unix socket 地址）。
	ErrInvalidAddress = errors.New("xnet: invalid IP address")

	// ErrInvalidRange 白名单条目格式无效。
	ErrInvalidRange = errors.New("xnet: invalid IP range")
)
