package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/omeyang/xwebd/pkg/observability/xlog"
	"github.com/omeyang/xwebd/pkg/resilience/xbreaker"
	"github.com/omeyang/xwebd/pkg/util/xfile"
	"github.com/omeyang/xwebd/pkg/util/xkeylock"
	"github.com/omeyang/xwebd/pkg/util/xlru"
)

// pageStore 读取 Root 下的页面文件。
//
// 读取路径：xlru 缓存 → xkeylock 合并并发未命中 → xbreaker 熔断 →
// xfile.ResolveIn + os.ReadFile。
// 文件变化由 fsnotify 推送，对应缓存条目被删除，下一次请求重新读盘。
type pageStore struct {
	root    string
	cache   *xlru.Cache[string, []byte] // nil 表示禁用缓存
	breaker *xbreaker.Breaker[[]byte]
	watcher *fsnotify.Watcher // nil 表示未监听
	locks   *xkeylock.Locker
	logger  xlog.Logger

	closeOnce sync.Once
}

func newPageStore(cfg *Config, logger xlog.Logger) (*pageStore, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("server: resolve root: %w", err)
	}

	locks, err := xkeylock.New()
	if err != nil {
		return nil, fmt.Errorf("server: page locks: %w", err)
	}

	failures := cfg.Breaker.Failures
	if failures == 0 {
		failures = 5
	}
	ps := &pageStore{
		root:   root,
		logger: logger,
		locks:  locks,
		breaker: xbreaker.New[[]byte]("pages",
			xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(failures)),
			xbreaker.WithSuccessPolicy(xbreaker.SuccessPolicyFunc(isPageMiss)),
			xbreaker.WithTimeout(cfg.Breaker.Timeout),
			xbreaker.WithInterval(cfg.Breaker.Interval),
			xbreaker.WithMaxRequests(cfg.Breaker.MaxRequests),
			xbreaker.WithOnStateChange(func(name string, from, to xbreaker.State) {
				logger.Warn(context.Background(), "page breaker state changed",
					xlog.Component(name), xlog.Status(from.String()+" -> "+to.String()))
			}),
		),
	}

	if cfg.Cache.Size > 0 {
		ps.cache, err = xlru.New[string, []byte](cfg.Cache)
		if err != nil {
			_ = locks.Close()
			return nil, fmt.Errorf("server: page cache: %w", err)
		}
		ps.watcher, err = newPageWatcher(root, cfg)
		if err != nil {
			// 没有监听时缓存可能返回过期内容，直接禁用缓存
			logger.Warn(context.Background(), "page watcher unavailable, cache disabled", xlog.Err(err))
			ps.cache.Close()
			ps.cache = nil
		}
	}
	return ps, nil
}

// newPageWatcher 监听根目录及所有页面所在的子目录。
func newPageWatcher(root string, cfg *Config) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dirs := map[string]struct{}{root: {}}
	pages := append(make([]Route, 0, len(cfg.Routes)+1), cfg.Routes...)
	pages = append(pages, cfg.NotFound)
	for _, r := range pages {
		dir := filepath.Dir(filepath.Join(root, filepath.FromSlash(r.Page)))
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			dirs[dir] = struct{}{}
		}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return nil, errors.Join(fmt.Errorf("watch %s: %w", dir, err), w.Close())
		}
	}
	return w, nil
}

// isPageMiss 把"请求方的问题"视为成功，只有真正的 I/O 故障才计入熔断。
func isPageMiss(err error) bool {
	return err == nil ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, xfile.ErrPathTraversal) ||
		errors.Is(err, xfile.ErrPathEscaped) ||
		errors.Is(err, xfile.ErrInvalidPath) ||
		errors.Is(err, xfile.ErrNullByte) ||
		errors.Is(err, xfile.ErrEmptyPath)
}

func pageKey(page string) string {
	return path.Clean("/" + page)[1:]
}

// Load 返回页面内容。熔断打开时返回的错误满足 xbreaker.IsOpen。
//
// 同一页面的并发未命中只有一个去读盘，其余等它写入缓存后直接返回。
func (ps *pageStore) Load(ctx context.Context, page string) ([]byte, error) {
	key := pageKey(page)
	if ps.cache != nil {
		if data, ok := ps.cache.Get(key); ok {
			return data, nil
		}
		unlock, err := ps.locks.Lock(ctx, key)
		if err != nil {
			return nil, err
		}
		defer unlock()
		if data, ok := ps.cache.Peek(key); ok {
			return data, nil
		}
	}

	data, err := ps.breaker.Execute(ctx, func() ([]byte, error) {
		p, err := xfile.ResolveIn(ps.root, key)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(p)
	})
	if err != nil {
		return nil, err
	}
	if ps.cache != nil {
		ps.cache.Set(key, data)
	}
	return data, nil
}

// Run 处理文件变化事件直到 ctx 取消。未启用缓存时直接等待 ctx。
func (ps *pageStore) Run(ctx context.Context) error {
	if ps.watcher == nil {
		<-ctx.Done()
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ps.watcher.Events:
			if !ok {
				return nil
			}
			ps.invalidate(ev.Name)
		case err, ok := <-ps.watcher.Errors:
			if !ok {
				return nil
			}
			ps.logger.Warn(ctx, "page watcher error", xlog.Err(err))
		}
	}
}

func (ps *pageStore) invalidate(name string) {
	rel, err := filepath.Rel(ps.root, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		ps.Purge()
		return
	}
	key := filepath.ToSlash(rel)
	if ps.cache == nil {
		return
	}
	// 目录被删除或重命名时，其下的所有条目一起失效
	if !ps.cache.Delete(key) {
		if fi, err := os.Stat(name); err != nil || fi.IsDir() {
			ps.Purge()
		}
	}
}

// Purge 清空缓存。
func (ps *pageStore) Purge() {
	if ps.cache != nil {
		ps.cache.Clear()
	}
}

// CacheStats 返回缓存统计，未启用缓存时为零值。
func (ps *pageStore) CacheStats() xlru.Stats {
	if ps.cache == nil {
		return xlru.Stats{}
	}
	return ps.cache.Stats()
}

// Close 停止文件监听并释放缓存。可重复调用。
func (ps *pageStore) Close() error {
	var err error
	ps.closeOnce.Do(func() {
		if ps.watcher != nil {
			err = ps.watcher.Close()
		}
		_ = ps.locks.Close()
		if ps.cache != nil {
			ps.cache.Close()
		}
	})
	return err
}
