package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// route 是预先计算好请求行与状态行的 Route。
type route struct {
	Route
	prefix []byte
	status string
}

func compileRoute(r Route) route {
	return route{
		Route:  r,
		prefix: []byte(r.RequestLine()),
		status: StatusLine(r.Status),
	}
}

// StatusLine 返回 "HTTP/1.1 <code> <REASON>" 形式的状态行，
// 原因短语取 net/http 的标准文本并转为大写（如 "HTTP/1.1 404 NOT FOUND"）。
func StatusLine(code int) string {
	reason := strings.ToUpper(http.StatusText(code))
	if reason == "" {
		return "HTTP/1.1 " + strconv.Itoa(code)
	}
	return "HTTP/1.1 " + strconv.Itoa(code) + " " + reason
}

// router 按配置顺序匹配请求行前缀，未命中时返回 notFound。
// 创建后只读，可在多个 worker 间共享。
type router struct {
	routes   []route
	notFound route
}

func newRouter(routes []Route, notFound Route) *router {
	r := &router{
		routes:   make([]route, 0, len(routes)),
		notFound: compileRoute(notFound),
	}
	for _, rt := range routes {
		r.routes = append(r.routes, compileRoute(rt))
	}
	return r
}

// match 返回第一个请求行是 buf 前缀的路由。
//
// 设计决策: 只做字节前缀比较，不解析请求。"GET / HTTP/1.1\r\n" 不会误匹配
// "GET /other HTTP/1.1\r\n"，因为前者的 " HTTP/1.1" 紧跟在 "/" 之后。
func (r *router) match(buf []byte) route {
	for _, rt := range r.routes {
		if bytes.HasPrefix(buf, rt.prefix) {
			return rt
		}
	}
	return r.notFound
}
