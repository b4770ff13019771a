package basic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	httpx "childsvc/http"
)

// HttpServer 基于标准库 net/http 的 IHttpServer 实现
//
// 路由以 Go 1.22 的 "METHOD /path/{param}" 模式注册到 ServeMux，
// 同一路径的不同方法互不干扰，未匹配方法由 ServeMux 返回 405。
type HttpServer struct {
	mux         *http.ServeMux
	config      *httpx.WebConfig
	server      *http.Server
	routes      []*route
	middlewares []httpx.Middleware
	utils       *HttpUtils
	registered  bool
	mu          sync.RWMutex
}

type route struct {
	method  string
	pattern string
	handler httpx.HttpHandler
}

// NewHTTPServer 创建基于 net/http 的服务器
func NewHTTPServer(config *httpx.WebConfig) *HttpServer {
	if config == nil {
		config = &httpx.WebConfig{}
	}
	return &HttpServer{
		mux:         http.NewServeMux(),
		config:      config,
		middlewares: make([]httpx.Middleware, 0),
		utils:       &HttpUtils{},
	}
}

// 路由注册实现
func (s *HttpServer) GET(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodGet, path, handler)
}
func (s *HttpServer) POST(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodPost, path, handler)
}
func (s *HttpServer) PUT(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodPut, path, handler)
}
func (s *HttpServer) DELETE(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodDelete, path, handler)
}

func (s *HttpServer) addRoute(method, path string, handler httpx.HttpHandler) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, &route{method: method, pattern: path, handler: handler})
	return s
}

// 路由分组
func (s *HttpServer) Group(prefix string) httpx.IRouteGroup {
	return &RouteGroup{prefix: prefix, server: s, middlewares: make([]httpx.Middleware, 0)}
}

// 全局中间件
func (s *HttpServer) Use(middleware ...httpx.Middleware) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, middleware...)
	return s
}

// Handler 注册全部路由（仅一次）并返回 ServeMux
func (s *HttpServer) Handler() http.Handler {
	s.registerRoutes()
	return s.mux
}

// 启停
func (s *HttpServer) Start(addr string) error {
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	}
	handler := s.Handler()
	s.mu.Lock()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HttpServer) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *HttpServer) GetRaw() any { return s.mux }

// 内部：注册全部路由
func (s *HttpServer) registerRoutes() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered {
		return
	}
	s.registered = true
	for _, r := range s.routes {
		s.mux.HandleFunc(r.method+" "+convertPathPattern(r.pattern), s.createHandler(r))
	}
}

// 将 :id 转为 {id} （Go 1.22+ PathValue 支持）
func convertPathPattern(pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "{" + p[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

func (s *HttpServer) createHandler(r *route) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := NewBaseHttpContext(w, req)
		parsePathParams(ctx, r.pattern, req)

		s.mu.RLock()
		middlewares := append([]httpx.Middleware{}, s.middlewares...)
		s.mu.RUnlock()

		if err := executeMiddlewareChain(ctx, middlewares, r.handler); err != nil {
			_ = s.utils.WriteErrorResponse(ctx, err)
		}
	}
}

func parsePathParams(ctx *HttpContext, pattern string, req *http.Request) {
	for _, part := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if strings.HasPrefix(part, ":") {
			name := part[1:]
			if v := req.PathValue(name); v != "" {
				ctx.SetParam(name, v)
			}
		}
	}
}

func executeMiddlewareChain(ctx httpx.IHttpContext, middlewares []httpx.Middleware, handler httpx.HttpHandler) error {
	if len(middlewares) == 0 {
		return handler(ctx)
	}
	return middlewares[0](ctx, func() error { return executeMiddlewareChain(ctx, middlewares[1:], handler) })
}

// RouteGroup 实现 IRouteGroup
type RouteGroup struct {
	prefix      string
	server      *HttpServer
	parent      *RouteGroup
	middlewares []httpx.Middleware
}

func (g *RouteGroup) GET(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodGet, path, h)
}
func (g *RouteGroup) POST(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodPost, path, h)
}
func (g *RouteGroup) PUT(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodPut, path, h)
}
func (g *RouteGroup) DELETE(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodDelete, path, h)
}

// Group 子分组继承父分组的中间件
func (g *RouteGroup) Group(prefix string) httpx.IRouteGroup {
	return &RouteGroup{prefix: g.prefix + prefix, server: g.server, parent: g, middlewares: make([]httpx.Middleware, 0)}
}

func (g *RouteGroup) Use(mw ...httpx.Middleware) httpx.IRouteGroup {
	g.middlewares = append(g.middlewares, mw...)
	return g
}

func (g *RouteGroup) add(method, path string, h httpx.HttpHandler) httpx.IRouteGroup {
	g.server.addRoute(method, g.prefix+path, g.wrap(h))
	return g
}

// chain 从最外层分组到当前分组依次收集中间件（在请求时求值，注册后 Use 的中间件同样生效）
func (g *RouteGroup) chain() []httpx.Middleware {
	if g.parent == nil {
		return g.middlewares
	}
	return append(append([]httpx.Middleware{}, g.parent.chain()...), g.middlewares...)
}

func (g *RouteGroup) wrap(h httpx.HttpHandler) httpx.HttpHandler {
	return func(ctx httpx.IHttpContext) error { return executeMiddlewareChain(ctx, g.chain(), h) }
}

var (
	_ httpx.IHttpServer = (*HttpServer)(nil)
	_ httpx.IRouteGroup = (*RouteGroup)(nil)
)
