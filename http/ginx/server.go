// Package ginx 基于 gin 的 IHttpServer 实现。
//
// 中间件与处理器沿用 httpx 的签名，在单个 gin.HandlerFunc 内串联执行，
// 因此两种引擎下中间件顺序与错误写出行为一致。
package ginx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	httpx "childsvc/http"
	"childsvc/http/basic"
)

// Server gin 引擎封装
type Server struct {
	engine      *gin.Engine
	config      *httpx.WebConfig
	server      *http.Server
	middlewares []httpx.Middleware
	utils       *basic.HttpUtils
	mu          sync.RWMutex
}

// NewServer 创建 gin 服务器（release 模式，开启 405 处理）
func NewServer(config *httpx.WebConfig) *Server {
	if config == nil {
		config = &httpx.WebConfig{}
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.HandleMethodNotAllowed = true
	return &Server{
		engine: engine,
		config: config,
		utils:  &basic.HttpUtils{},
	}
}

func (s *Server) GET(path string, h httpx.HttpHandler) httpx.IHttpServer {
	return s.handle(http.MethodGet, path, h)
}
func (s *Server) POST(path string, h httpx.HttpHandler) httpx.IHttpServer {
	return s.handle(http.MethodPost, path, h)
}
func (s *Server) PUT(path string, h httpx.HttpHandler) httpx.IHttpServer {
	return s.handle(http.MethodPut, path, h)
}
func (s *Server) DELETE(path string, h httpx.HttpHandler) httpx.IHttpServer {
	return s.handle(http.MethodDelete, path, h)
}

func (s *Server) handle(method, path string, h httpx.HttpHandler) httpx.IHttpServer {
	s.engine.Handle(method, path, s.adapt(h))
	return s
}

func (s *Server) Group(prefix string) httpx.IRouteGroup {
	return &RouteGroup{prefix: prefix, server: s}
}

func (s *Server) Use(middleware ...httpx.Middleware) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, middleware...)
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	}
	s.mu.Lock()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
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

func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) GetRaw() any { return s.engine }

func (s *Server) adapt(h httpx.HttpHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := newContext(c)
		s.mu.RLock()
		middlewares := append([]httpx.Middleware{}, s.middlewares...)
		s.mu.RUnlock()

		if err := run(ctx, middlewares, h); err != nil {
			_ = s.utils.WriteErrorResponse(ctx, err)
		}
	}
}

func run(ctx httpx.IHttpContext, middlewares []httpx.Middleware, h httpx.HttpHandler) error {
	if len(middlewares) == 0 {
		return h(ctx)
	}
	return middlewares[0](ctx, func() error { return run(ctx, middlewares[1:], h) })
}

// RouteGroup gin 路由分组
type RouteGroup struct {
	prefix      string
	server      *Server
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

func (g *RouteGroup) Group(prefix string) httpx.IRouteGroup {
	return &RouteGroup{prefix: g.prefix + prefix, server: g.server, parent: g}
}

func (g *RouteGroup) Use(mw ...httpx.Middleware) httpx.IRouteGroup {
	g.middlewares = append(g.middlewares, mw...)
	return g
}

func (g *RouteGroup) chain() []httpx.Middleware {
	if g.parent == nil {
		return g.middlewares
	}
	return append(append([]httpx.Middleware{}, g.parent.chain()...), g.middlewares...)
}

func (g *RouteGroup) add(method, path string, h httpx.HttpHandler) httpx.IRouteGroup {
	wrapped := func(ctx httpx.IHttpContext) error { return run(ctx, g.chain(), h) }
	g.server.handle(method, g.prefix+path, wrapped)
	return g
}

var (
	_ httpx.IHttpServer = (*Server)(nil)
	_ httpx.IRouteGroup = (*RouteGroup)(nil)
)
