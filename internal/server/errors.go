package server

import "errors"

var (
	// ErrInvalidConfig 配置校验失败，具体原因由 errors.Join 附加。
	ErrInvalidConfig = errors.New("server: invalid config")

	// ErrNotListening Serve 在 Listen 之前被调用。
	ErrNotListening = errors.New("server: not listening")

	// ErrAlreadyListening Listen 被重复调用。
	ErrAlreadyListening = errors.New("server: already listening")

	// ErrClosed 服务器已关闭。
	ErrClosed = errors.New("server: closed")
)
