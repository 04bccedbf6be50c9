package xkeylock

import "errors"

var (
	// ErrClosed 表示 Locker 已关闭。
	ErrClosed = errors.New("xkeylock: closed")

	// ErrInvalidKey 表示 key 为空。
	ErrInvalidKey = errors.New("xkeylock: key must not be empty")

	// ErrNilContext 表示 Lock 收到 nil ctx。
	ErrNilContext = errors.New("xkeylock: nil context")

	// ErrInvalidShardCount 表示分片数不是 [1, 65536] 内的 2 的幂。
	ErrInvalidShardCount = errors.New("xkeylock: invalid shard count")
)
