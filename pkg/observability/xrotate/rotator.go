package xrotate

import (
	"fmt"
	"io"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/omeyang/xwebd/pkg/util/xfile"
)

const (
	// DefaultMaxSizeMB 默认单个日志文件最大大小（MB）
	DefaultMaxSizeMB = 100
	// DefaultMaxBackups 默认保留的备份文件数量
	DefaultMaxBackups = 7
	// DefaultMaxAgeDays 默认保留备份的天数
	DefaultMaxAgeDays = 30

	maxSizeMB  = 10240
	maxBackups = 1024
	maxAgeDays = 3650
)

// 编译时断言
var _ io.WriteCloser = (*Rotator)(nil)

// Config 轮转配置，零值字段使用默认值。
type Config struct {
	// MaxSizeMB 单个文件达到该大小后轮转
	MaxSizeMB int `koanf:"max_size_mb"`
	// MaxBackups 保留的备份文件数量
	MaxBackups int `koanf:"max_backups"`
	// MaxAgeDays 保留备份的天数
	MaxAgeDays int `koanf:"max_age_days"`
	// Compress 是否 gzip 压缩备份
	Compress bool `koanf:"compress"`
	// LocalTime 备份文件名是否使用本地时间，默认 UTC
	LocalTime bool `koanf:"local_time"`
}

func (c *Config) applyDefaults() {
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = DefaultMaxSizeMB
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = DefaultMaxBackups
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = DefaultMaxAgeDays
	}
}

func (c *Config) validate() error {
	switch {
	case c.MaxSizeMB < 0 || c.MaxSizeMB > maxSizeMB:
		return fmt.Errorf("%w: MaxSizeMB %d out of range 1~%d", ErrInvalidConfig, c.MaxSizeMB, maxSizeMB)
	case c.MaxBackups < 0 || c.MaxBackups > maxBackups:
		return fmt.Errorf("%w: MaxBackups %d out of range 0~%d", ErrInvalidConfig, c.MaxBackups, maxBackups)
	case c.MaxAgeDays < 0 || c.MaxAgeDays > maxAgeDays:
		return fmt.Errorf("%w: MaxAgeDays %d out of range 0~%d", ErrInvalidConfig, c.MaxAgeDays, maxAgeDays)
	}
	return nil
}

// Rotator 基于 lumberjack 的轮转写入器
type Rotator struct {
	logger *lumberjack.Logger
	closed atomic.Bool
}

// New 创建轮转写入器。
//
// filename 会经过规范化与安全检查，不存在的父目录会自动创建。
// lumberjack 在首次写入时才创建文件。
func New(filename string, cfg Config) (*Rotator, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	safePath, err := xfile.SanitizePath(filename)
	if err != nil {
		return nil, err
	}
	if err := xfile.EnsureDir(safePath); err != nil {
		return nil, err
	}

	return &Rotator{
		logger: &lumberjack.Logger{
			Filename:   safePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  cfg.LocalTime,
		},
	}, nil
}

// Filename 返回规范化后的日志文件路径。
func (r *Rotator) Filename() string {
	return r.logger.Filename
}

// Write 实现 io.Writer，达到大小阈值时自动轮转。
func (r *Rotator) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	n, err := r.logger.Write(p)
	// Write 期间被并发 Close 时，统一返回 ErrClosed 而不是底层 I/O 错误
	if err != nil && r.closed.Load() {
		return n, ErrClosed
	}
	return n, err
}

// Rotate 手动触发轮转，可用于响应 SIGHUP 等外部信号。
func (r *Rotator) Rotate() error {
	if r.closed.Load() {
		return ErrClosed
	}
	return r.logger.Rotate()
}

// Close 关闭当前文件。重复调用返回 ErrClosed。
func (r *Rotator) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	return r.logger.Close()
}
