package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omeyang/xwebd/pkg/observability/xlog"
)

const (
	helloBody = "<h1>hello</h1>"
	otherBody = "<h1>other</h1>"
	errorBody = "<h1>oops</h1>"
)

// newTestRoot 创建包含三个默认页面的根目录。
func newTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writePage(t, root, "hello.html", helloBody)
	writePage(t, root, "other.html", otherBody)
	writePage(t, root, "error.html", errorBody)
	return root
}

func writePage(t *testing.T, root, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o600))
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.Root = newTestRoot(t)
	cfg.Workers = 2
	cfg.ReadTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second
	cfg.ShutdownTimeout = 5 * time.Second
	return cfg
}

// syncBuffer 是并发安全的日志输出。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(t *testing.T) (xlog.Logger, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	l, cleanup, err := xlog.New().SetOutput(out).SetLevel(xlog.LevelDebug).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return l, out
}

// runningServer 在后台运行 Server.Run，直到测试结束或显式 stop。
type runningServer struct {
	*Server
	addr   string
	cancel context.CancelFunc
	done   chan error
}

func (rs *runningServer) stop(t *testing.T) {
	t.Helper()
	rs.cancel()
	select {
	case err := <-rs.done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func startServer(t *testing.T, cfg Config, opts ...Option) *runningServer {
	t.Helper()
	s, err := New(cfg, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	rs := &runningServer{Server: s, cancel: cancel, done: make(chan error, 1)}
	go func() { rs.done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, 5*time.Second, 5*time.Millisecond)
	rs.addr = s.Addr().String()

	stopped := false
	t.Cleanup(func() {
		if !stopped {
			cancel()
			<-rs.done
		}
	})
	rs.cancel = func() {
		stopped = true
		cancel()
	}
	return rs
}

// roundTrip 发送原始请求并读取到连接关闭为止的全部响应。
func roundTrip(t *testing.T, addr, req string) string {
	t.Helper()
	resp, err := doRequest(addr, req)
	require.NoError(t, err)
	return resp
}

// doRequest 不依赖 testing.T，可在子 goroutine 中使用。
// 对端提前关闭（如白名单拒绝）时返回已读到的内容，不视为错误。
func doRequest(addr, req string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return "", err
	}
	if req != "" {
		if _, err := io.WriteString(conn, req); err != nil {
			return "", nil
		}
	}
	resp, _ := io.ReadAll(conn)
	return string(resp), nil
}

func wantResponse(status, body string) string {
	return string(buildResponse(status, []byte(body)))
}
