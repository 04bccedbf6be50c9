package server

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"path"
	"time"

	"github.com/omeyang/xwebd/pkg/observability/xrotate"
	"github.com/omeyang/xwebd/pkg/resilience/xlimit"
	"github.com/omeyang/xwebd/pkg/util/xlru"
	"github.com/omeyang/xwebd/pkg/util/xnet"
)

// 默认值与最初的单机版本保持一致：127.0.0.1:7878、4 个 worker、1024 字节读取缓冲。
const (
	DefaultAddr            = "127.0.0.1:7878"
	DefaultWorkers         = 4
	DefaultReadBufferSize  = 1024
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultAcceptRetries   = 10
	DefaultCacheSize       = 64
	DefaultStatsInterval   = time.Minute

	maxWorkers   = 1 << 16
	maxQueueSize = 1 << 24
)

// Route 把一条请求行映射到状态码与页面文件。
//
// 匹配条件是请求数据以 "<Method> <Path> HTTP/1.1\r\n" 开头。
type Route struct {
	Name   string `koanf:"name"`
	Method string `koanf:"method"`
	Path   string `koanf:"path"`
	Status int    `koanf:"status"`
	// Page 相对于 Root 的页面文件路径
	Page string `koanf:"page"`
}

// RequestLine 返回路由匹配的请求行前缀。
func (r Route) RequestLine() string {
	return r.Method + " " + r.Path + " HTTP/1.1\r\n"
}

// BreakerConfig 页面读取熔断配置。
type BreakerConfig struct {
	// Failures 连续失败多少次后熔断，0 表示默认 5 次
	Failures uint32 `koanf:"failures"`
	// Timeout 熔断后多久进入半开探测
	Timeout time.Duration `koanf:"timeout"`
	// Interval 关闭状态下清零失败计数的周期，0 表示一直累积
	Interval time.Duration `koanf:"interval"`
	// MaxRequests 半开状态放行的探测请求数，0 表示 1 个
	MaxRequests uint32 `koanf:"max_requests"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// File 非空时输出到带轮转的文件
	File     string         `koanf:"file"`
	Rotation xrotate.Config `koanf:"rotation"`
	// SampleRate 成功连接日志的采样比率，按客户端 IP 一致采样
	SampleRate float64 `koanf:"sample_rate"`
	// DropEvery 拒绝类告警日志每 N 条记录 1 条，0 和 1 表示全部记录
	DropEvery int `koanf:"drop_every"`
	// AddSource 日志附带调用位置
	AddSource bool `koanf:"add_source"`
}

// Config 是 xwebd 的完整配置，字段标签对应配置文件的 key。
type Config struct {
	Addr    string `koanf:"addr"`
	Workers int    `koanf:"workers"`
	// QueueSize 为 0 表示无界队列；大于 0 时队列满的连接被直接关闭
	QueueSize int `koanf:"queue_size"`
	// Root 页面文件根目录
	Root            string        `koanf:"root"`
	ReadBufferSize  int           `koanf:"read_buffer_size"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// AcceptRetries 单次 accept 的临时错误最多重试次数
	AcceptRetries int `koanf:"accept_retries"`
	// Allow 客户端白名单：IP、CIDR 或 "起始IP-结束IP" 区间，空表示不限制
	Allow []string `koanf:"allow"`
	// RateLimit 按客户端 IP 的连接限流，Limit 为 0 时禁用
	RateLimit xlimit.Config `koanf:"rate_limit"`
	// MaxOpenFiles 启动时把 RLIMIT_NOFILE 的 soft limit 提升到该值，0 表示不调整
	MaxOpenFiles uint64 `koanf:"max_open_files"`
	// Cache 页面缓存，Size 为 0 时禁用
	Cache         xlru.Config   `koanf:"cache"`
	Breaker       BreakerConfig `koanf:"breaker"`
	Routes        []Route       `koanf:"routes"`
	NotFound      Route         `koanf:"not_found"`
	Log           LogConfig     `koanf:"log"`
	StatsInterval time.Duration `koanf:"stats_interval"`
}

// DefaultConfig 返回默认配置：
//
//	GET / HTTP/1.1      -> 200 hello.html
//	GET /other HTTP/1.1 -> 200 other.html
//	其他                 -> 404 error.html
func DefaultConfig() Config {
	return Config{
		Addr:            DefaultAddr,
		Workers:         DefaultWorkers,
		Root:            ".",
		ReadBufferSize:  DefaultReadBufferSize,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		AcceptRetries:   DefaultAcceptRetries,
		Cache:           xlru.Config{Size: DefaultCacheSize},
		Breaker:         BreakerConfig{Failures: 5, Timeout: 30 * time.Second},
		Routes: []Route{
			{Name: "index", Method: "GET", Path: "/", Status: 200, Page: "hello.html"},
			{Name: "other", Method: "GET", Path: "/other", Status: 200, Page: "other.html"},
		},
		NotFound:      Route{Name: "not_found", Status: 404, Page: "error.html"},
		Log:           LogConfig{Level: "info", Format: "text", SampleRate: 1},
		StatsInterval: DefaultStatsInterval,
	}
}

// Validate 校验配置，返回包裹 ErrInvalidConfig 的全部问题。
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		add("addr %q: %w", c.Addr, err)
	}
	if c.Workers < 1 || c.Workers > maxWorkers {
		add("workers must be in [1, %d], got %d", maxWorkers, c.Workers)
	}
	if c.QueueSize < 0 || c.QueueSize > maxQueueSize {
		add("queue_size must be in [0, %d], got %d", maxQueueSize, c.QueueSize)
	}
	if c.ReadBufferSize < 1 {
		add("read_buffer_size must be positive, got %d", c.ReadBufferSize)
	}
	if fi, err := os.Stat(c.Root); err != nil {
		add("root %q: %w", c.Root, err)
	} else if !fi.IsDir() {
		add("root %q is not a directory", c.Root)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 || c.StatsInterval < 0 {
		add("timeouts and intervals must not be negative")
	}
	if c.AcceptRetries < 0 {
		add("accept_retries must not be negative, got %d", c.AcceptRetries)
	}
	if c.Breaker.Timeout < 0 || c.Breaker.Interval < 0 {
		add("breaker timeout and interval must not be negative")
	}
	if c.Cache.Size < 0 || c.Cache.TTL < 0 {
		add("cache size and ttl must not be negative")
	}
	if err := c.RateLimit.Validate(); err != nil {
		add("rate_limit: %w", err)
	}
	if math.IsNaN(c.Log.SampleRate) || c.Log.SampleRate < 0 || c.Log.SampleRate > 1 {
		add("log.sample_rate must be in [0, 1], got %v", c.Log.SampleRate)
	}
	if c.Log.DropEvery < 0 {
		add("log.drop_every must not be negative, got %d", c.Log.DropEvery)
	}
	if _, err := xnet.ParseRanges(c.Allow); err != nil {
		add("allow: %w", err)
	}
	errs = append(errs, c.validateRoutes()...)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (c *Config) validateRoutes() []error {
	var errs []error
	seen := make(map[string]bool, len(c.Routes))
	for i, r := range c.Routes {
		if r.Method == "" || r.Path == "" || r.Path[0] != '/' {
			errs = append(errs, fmt.Errorf("routes[%d]: method and absolute path are required", i))
		}
		if line := r.RequestLine(); c.ReadBufferSize > 0 && len(line) > c.ReadBufferSize {
			errs = append(errs, fmt.Errorf("routes[%d]: request line %q longer than read_buffer_size %d", i, line, c.ReadBufferSize))
		} else if seen[line] {
			errs = append(errs, fmt.Errorf("routes[%d]: duplicate request line %q", i, line))
		}
		seen[r.RequestLine()] = true
		errs = append(errs, validatePage(fmt.Sprintf("routes[%d]", i), r)...)
	}
	errs = append(errs, validatePage("not_found", c.NotFound)...)
	return errs
}

func validatePage(where string, r Route) []error {
	var errs []error
	if r.Status < 100 || r.Status > 599 {
		errs = append(errs, fmt.Errorf("%s: status %d out of range", where, r.Status))
	}
	if r.Page == "" || path.IsAbs(r.Page) {
		errs = append(errs, fmt.Errorf("%s: page must be a relative path", where))
	}
	return errs
}
