package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xwebd/pkg/lifecycle/xrun"
	"github.com/omeyang/xwebd/pkg/observability/xlog"
	"github.com/omeyang/xwebd/pkg/observability/xmetrics"
	"github.com/omeyang/xwebd/pkg/observability/xsampling"
	"github.com/omeyang/xwebd/pkg/resilience/xbreaker"
	"github.com/omeyang/xwebd/pkg/resilience/xlimit"
	"github.com/omeyang/xwebd/pkg/resilience/xretry"
	"github.com/omeyang/xwebd/pkg/util/xlru"
	"github.com/omeyang/xwebd/pkg/util/xnet"
	"github.com/omeyang/xwebd/pkg/util/xpool"
)

// IDGenerator 生成连接 ID，*xid.Generator 满足该接口。
type IDGenerator interface {
	Next() (uint64, error)
}

// Option 配置 Server。
type Option func(*Server)

// WithLogger 设置日志，默认 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver 设置连接级观测（每个连接一个 span）。
func WithObserver(obs xmetrics.Observer) Option {
	return func(s *Server) {
		s.observer = obs
	}
}

// WithPoolObserver 为工作池追加事件 Observer，通常是 xmetrics.NewPoolObserver 的结果。
func WithPoolObserver(obs xpool.Observer) Option {
	return func(s *Server) {
		s.poolObserver = obs
	}
}

// WithIDGenerator 设置连接 ID 生成器。未设置或生成失败时使用进程内自增序号。
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Server) {
		s.ids = g
	}
}

// Stats 是服务器运行统计快照。
type Stats struct {
	// Accepted 累计 accept 成功的连接数
	Accepted uint64
	// Denied 被白名单拒绝的连接数
	Denied uint64
	// Limited 超过单 IP 连接速率被关闭的连接数
	Limited uint64
	// Rejected 工作池拒绝（关闭或队列满）的连接数
	Rejected uint64
	Pool     xpool.Stats
	Cache    xlru.Stats
	Breaker  xbreaker.State
}

// Server 是 accept 循环加工作池的静态页面服务器。
//
// 生命周期：[New] → [Server.Listen] → [Server.Serve]（阻塞）→ [Server.Shutdown]。
// [Server.Run] 把这些步骤与页面监听组合在一起，ctx 取消即优雅退出。
type Server struct {
	cfg          Config
	logger       xlog.Logger
	observer     xmetrics.Observer
	poolObserver xpool.Observer
	ids          IDGenerator
	seq          atomic.Uint64

	pool    *xpool.Pool
	pages   *pageStore
	allow   *xnet.AllowList
	limiter *xlimit.Limiter // nil 表示不限流
	router  *router

	// servedLog 决定是否记录成功连接的日志，dropLog 决定是否记录拒绝类告警
	servedLog xsampling.Sampler
	dropLog   xsampling.Sampler

	// baseCtx 是所有连接处理的父 context，Shutdown 完成后取消
	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	ln      net.Listener
	closing atomic.Bool

	limiterOnce sync.Once

	accepted atomic.Uint64
	denied   atomic.Uint64
	limited  atomic.Uint64
	rejected atomic.Uint64
}

// New 校验配置并创建服务器，工作池的 worker 立即启动。
func New(cfg Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		logger: xlog.Default(),
		router: newRouter(cfg.Routes, cfg.NotFound),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With(xlog.Component(componentName))

	allow, err := xnet.NewAllowList(cfg.Allow)
	if err != nil {
		return nil, fmt.Errorf("%w: allow: %w", ErrInvalidConfig, err)
	}
	s.allow = allow

	if s.servedLog, s.dropLog, err = newLogSamplers(cfg.Log); err != nil {
		return nil, fmt.Errorf("%w: log: %w", ErrInvalidConfig, err)
	}

	if cfg.RateLimit.Enabled() {
		if s.limiter, err = xlimit.New(cfg.RateLimit); err != nil {
			return nil, fmt.Errorf("%w: rate_limit: %w", ErrInvalidConfig, err)
		}
	}

	s.pages, err = newPageStore(&s.cfg, s.logger)
	if err != nil {
		s.closeLimiter()
		return nil, err
	}

	s.pool, err = xpool.New(cfg.Workers,
		xpool.WithName("conn"),
		xpool.WithLogger(xlog.Slog(s.logger)),
		xpool.WithQueueSize(cfg.QueueSize),
		xpool.WithObserver(s.poolObserver),
	)
	if err != nil {
		s.closeLimiter()
		return nil, errors.Join(err, s.pages.Close())
	}

	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Listen 绑定监听地址。ctx 只作用于绑定过程。
func (s *Server) Listen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return ErrClosed
	}
	if s.ln != nil {
		return ErrAlreadyListening
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	s.logger.Info(ctx, "listening", xlog.RemoteAddr(ln.Addr()))
	return nil
}

// Addr 返回实际监听地址，未监听时为 nil。
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Pool 返回承载连接的工作池。
func (s *Server) Pool() *xpool.Pool {
	return s.pool
}

// Serve 运行 accept 循环，直到 Shutdown 被调用（返回 xrun.ErrServerClosed）
// 或 accept 出现不可恢复的错误。
//
// 每个连接先经过白名单，再作为一个任务提交到工作池；提交失败的连接直接关闭。
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	for {
		conn, err := s.accept(ln)
		if err != nil {
			if s.closing.Load() || xretry.IsPermanent(err) {
				return xrun.ErrServerClosed
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		s.dispatch(conn)
	}
}

// accept 对临时错误（如 EMFILE）按指数退避重试，监听关闭后立即返回。
func (s *Server) accept(ln net.Listener) (net.Conn, error) {
	backoff := xretry.NewExponentialBackoff(
		xretry.WithInitialDelay(5*time.Millisecond),
		xretry.WithMaxDelay(time.Second),
	)
	return xretry.DoWithData(s.baseCtx, func() (net.Conn, error) {
		conn, err := ln.Accept()
		if err != nil {
			return nil, s.classifyAcceptErr(err)
		}
		return conn, nil
	},
		xretry.Attempts(uint(s.cfg.AcceptRetries)+1),
		xretry.DelayType(xretry.ToDelayType(backoff)),
		xretry.LastErrorOnly(true),
		xretry.OnRetry(func(n uint, err error) {
			s.logger.Warn(s.baseCtx, "accept failed, retrying",
				xlog.Err(err), slog.Uint64("attempt", uint64(n)+1))
		}),
	)
}

// classifyAcceptErr 区分监听关闭（永久）与 EMFILE 之类可以等待恢复的错误（临时）。
func (s *Server) classifyAcceptErr(err error) error {
	if s.closing.Load() || errors.Is(err, net.ErrClosed) {
		return xretry.NewPermanentError(err)
	}
	return xretry.NewTemporaryError(err)
}

// dispatch 依次经过白名单与限流，然后把连接提交到工作池。
func (s *Server) dispatch(conn net.Conn) {
	s.accepted.Add(1)
	remote := conn.RemoteAddr()
	client := clientKey(remote)

	if !s.allow.AllowsNetAddr(remote) {
		s.denied.Add(1)
		s.logDrop("connection denied", remote)
		_ = conn.Close()
		return
	}

	if s.limiter != nil {
		if res := s.limiter.Allow(client); !res.Allowed {
			s.limited.Add(1)
			s.logDrop("connection rate limited", remote, xlog.Duration(res.RetryAfter))
			_ = conn.Close()
			return
		}
	}

	id := s.nextID()
	if err := s.pool.Submit(func() { s.handleConn(conn, id, client) }); err != nil {
		s.rejected.Add(1)
		s.logDrop("connection rejected", remote, xlog.ConnID(id), xlog.Err(err))
		_ = conn.Close()
	}
}

// logDrop 记录被丢弃的连接。突发拒绝时按 dropLog 抽样，避免日志风暴。
func (s *Server) logDrop(msg string, remote net.Addr, attrs ...slog.Attr) {
	if !s.dropLog.ShouldSample(s.baseCtx) {
		return
	}
	s.logger.Warn(s.baseCtx, msg, append([]slog.Attr{xlog.RemoteAddr(remote)}, attrs...)...)
}

// clientKey 返回连接来源 IP，作为限流与日志采样的 key。
func clientKey(addr net.Addr) string {
	if ip, err := xnet.AddrFromNet(addr); err == nil {
		return ip.String()
	}
	if addr == nil {
		return ""
	}
	return addr.String()
}

func newLogSamplers(cfg LogConfig) (served, drop xsampling.Sampler, err error) {
	served = xsampling.Always()
	if cfg.SampleRate < 1 {
		if served, err = xsampling.NewKeyBasedSampler(cfg.SampleRate, nil); err != nil {
			return nil, nil, err
		}
	}
	drop = xsampling.Always()
	if cfg.DropEvery > 1 {
		if drop, err = xsampling.NewCountSampler(cfg.DropEvery); err != nil {
			return nil, nil, err
		}
	}
	return served, drop, nil
}

func (s *Server) closeLimiter() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}

func (s *Server) nextID() uint64 {
	if s.ids != nil {
		if id, err := s.ids.Next(); err == nil {
			return id
		}
	}
	return s.seq.Add(1)
}

// Shutdown 停止接收新连接并等待已提交的连接处理完毕。
//
// 顺序：关闭监听 → 工作池优雅关闭（受 ctx 约束）→ 关闭页面监听与缓存。
// 可重复调用；工作池的关闭由第一次调用驱动，后续调用等待其完成。
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)

	var errs []error
	s.mu.Lock()
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("close listener: %w", err))
		}
	}
	s.mu.Unlock()

	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown pool: %w", err))
	}
	if err := s.pages.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pages: %w", err))
	}
	s.limiterOnce.Do(s.closeLimiter)
	s.cancel()
	return errors.Join(errs...)
}

// Run 监听并服务，直到 ctx 取消或出现致命错误。ctx 取消时按
// ShutdownTimeout 优雅关闭，正常关闭返回 nil。
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return errors.Join(err, s.Shutdown(context.Background()))
	}

	g, _ := xrun.NewGroup(ctx,
		xrun.WithName("server"),
		xrun.WithLogger(xlog.Slog(s.logger)),
	)
	g.GoWithName("accept", xrun.Serve(s, s.cfg.ShutdownTimeout))
	g.GoWithName("page-watcher", s.pages.Run)
	err := g.Wait()

	// accept 因致命错误退出时 xrun.Serve 不会触发 Shutdown，这里补上
	if !s.closing.Load() {
		sctx, cancel := shutdownContext(s.cfg.ShutdownTimeout)
		defer cancel()
		err = errors.Join(err, s.Shutdown(sctx))
	}
	return err
}

func shutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

// Reload 应用可热更新的配置项：白名单立即生效，页面缓存被清空。
// 其他字段（监听地址、worker 数量等）需要重启才能生效。
func (s *Server) Reload(cfg Config) error {
	if err := s.allow.Set(cfg.Allow); err != nil {
		return fmt.Errorf("%w: allow: %w", ErrInvalidConfig, err)
	}
	s.pages.Purge()
	s.logger.Info(s.baseCtx, "config reloaded")
	return nil
}

// Stats 返回运行统计快照。
func (s *Server) Stats() Stats {
	return Stats{
		Accepted: s.accepted.Load(),
		Denied:   s.denied.Load(),
		Limited:  s.limited.Load(),
		Rejected: s.rejected.Load(),
		Pool:     s.pool.Stats(),
		Cache:    s.pages.CacheStats(),
		Breaker:  s.pages.breaker.State(),
	}
}

// LogStats 记录一次运行统计，签名适配 xrun.Ticker。
func (s *Server) LogStats(ctx context.Context) error {
	st := s.Stats()
	s.logger.Info(ctx, "server stats",
		slog.Uint64("accepted", st.Accepted),
		slog.Uint64("denied", st.Denied),
		slog.Uint64("limited", st.Limited),
		slog.Uint64("rejected", st.Rejected),
		slog.Int("pending", st.Pool.Pending),
		slog.Int("busy", st.Pool.Busy),
		slog.Uint64("completed", st.Pool.Completed),
		slog.Uint64("panicked", st.Pool.Panicked),
		slog.Uint64("cache_hits", st.Cache.Hits),
		slog.Uint64("cache_misses", st.Cache.Misses),
		slog.String("breaker", st.Breaker.String()),
	)
	return nil
}
