package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/omeyang/xwebd/pkg/observability/xlog"
	"github.com/omeyang/xwebd/pkg/observability/xmetrics"
	"github.com/omeyang/xwebd/pkg/observability/xsampling"
	"github.com/omeyang/xwebd/pkg/resilience/xbreaker"
)

const (
	componentName = "xwebd.server"
	opServeConn   = "serve_conn"
)

// outcome 描述一次连接处理的结果，用于日志与观测。
type outcome struct {
	route  string
	status int
	bytes  int
}

// handleConn 在 worker 上处理单个连接，返回前总会关闭连接并结束 span。
//
// 普通错误在这里记录后消化；panic 记录后原样抛给工作池，由池负责恢复与计数。
func (s *Server) handleConn(conn net.Conn, id uint64, client string) {
	ctx := xlog.ContextWithAttrs(s.baseCtx, xlog.ConnID(id), xlog.RemoteAddr(conn.RemoteAddr()))
	ctx = xsampling.ContextWithKey(ctx, client)
	ctx, span := xmetrics.Start(ctx, s.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: opServeConn,
		Kind:      xmetrics.KindServer,
		Attrs:     []xmetrics.Attr{xmetrics.Uint64("conn.id", id)},
	})

	start := time.Now()
	var (
		out outcome
		err error
	)
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = errors.Join(err, fmt.Errorf("close: %w", cerr))
		}
		s.finishConn(ctx, span, out, err, time.Since(start))
		if r != nil {
			panic(r)
		}
	}()

	out, err = s.respond(ctx, conn)
}

func (s *Server) finishConn(ctx context.Context, span xmetrics.Span, out outcome, err error, elapsed time.Duration) {
	span.End(xmetrics.Result{
		Err: err,
		Attrs: []xmetrics.Attr{
			xmetrics.String("route", out.route),
			xmetrics.Int("status", out.status),
			xmetrics.Int("bytes", out.bytes),
			xmetrics.Duration("duration", elapsed),
		},
	})

	attrs := []slog.Attr{
		xlog.Route(out.route),
		xlog.Status(StatusLine(out.status)),
		xlog.Bytes(out.bytes),
		xlog.Duration(elapsed),
	}
	if err != nil {
		s.logger.Warn(ctx, "connection failed", append(attrs, xlog.Err(err))...)
		return
	}
	if s.servedLog.ShouldSample(ctx) {
		s.logger.Debug(ctx, "connection served", attrs...)
	}
}

// respond 读取一次请求数据、匹配路由并写回响应。
func (s *Server) respond(ctx context.Context, conn net.Conn) (outcome, error) {
	var out outcome

	if s.cfg.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return out, fmt.Errorf("set read deadline: %w", err)
		}
	}
	buf := make([]byte, s.cfg.ReadBufferSize)
	n, err := conn.Read(buf)
	if n == 0 && err != nil {
		return out, fmt.Errorf("read request: %w", err)
	}

	rt := s.router.match(buf[:n])
	out.route, out.status = rt.Name, rt.Status
	status := rt.status

	var pageErr error
	body, err := s.pages.Load(ctx, rt.Page)
	if err != nil {
		out.status = http.StatusInternalServerError
		if xbreaker.IsOpen(err) || xbreaker.IsTooManyRequests(err) {
			out.status = http.StatusServiceUnavailable
		}
		status = StatusLine(out.status)
		body = []byte(http.StatusText(out.status))
		pageErr = fmt.Errorf("load page %q: %w", rt.Page, err)
	}

	if s.cfg.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return out, errors.Join(pageErr, fmt.Errorf("set write deadline: %w", err))
		}
	}
	out.bytes, err = conn.Write(buildResponse(status, body))
	if err != nil {
		return out, errors.Join(pageErr, fmt.Errorf("write response: %w", err))
	}
	return out, pageErr
}

// buildResponse 生成 "<状态行>\r\nContent-Length: <n>\r\n\r\n<body>"。
func buildResponse(status string, body []byte) []byte {
	resp := make([]byte, 0, len(status)+len(body)+32)
	resp = append(resp, status...)
	resp = append(resp, "\r\nContent-Length: "...)
	resp = strconv.AppendInt(resp, int64(len(body)), 10)
	resp = append(resp, "\r\n\r\n"...)
	return append(resp, body...)
}
