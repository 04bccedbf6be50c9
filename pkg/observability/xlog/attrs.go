package xlog

import (
	"log/slog"
	"net"
	"time"
)

// 常用属性 Key
const (
	KeyError      = "error"
	KeyStack      = "stack"
	KeyDuration   = "duration"
	KeyComponent  = "component"
	KeyWorkerID   = "worker_id"
	KeyConnID     = "conn_id"
	KeyRemoteAddr = "remote_addr"
	KeyRoute      = "route"
	KeyStatus     = "status"
	KeyBytes      = "bytes"
)

// Err 创建错误属性，err 为 nil 时返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建人类可读的耗时属性（如 "1.5ms"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

func WorkerID(id int) slog.Attr {
	return slog.Int(KeyWorkerID, id)
}

func ConnID(id uint64) slog.Attr {
	return slog.Uint64(KeyConnID, id)
}

// RemoteAddr 创建远端地址属性，addr 为 nil 时返回空属性。
func RemoteAddr(addr net.Addr) slog.Attr {
	if addr == nil {
		return slog.Attr{}
	}
	return slog.String(KeyRemoteAddr, addr.String())
}

func Route(name string) slog.Attr {
	return slog.String(KeyRoute, name)
}

// Status 创建响应状态属性（如 "HTTP/1.1 200 OK"）。
func Status(line string) slog.Attr {
	return slog.String(KeyStatus, line)
}

func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}
