package http

import (
	"context"
	"net/http"
)

// IHttpServer HTTP 服务器接口
type IHttpServer interface {
	GET(path string, handler HttpHandler) IHttpServer
	POST(path string, handler HttpHandler) IHttpServer
	PUT(path string, handler HttpHandler) IHttpServer
	DELETE(path string, handler HttpHandler) IHttpServer

	Group(prefix string) IRouteGroup
	Use(middleware ...Middleware) IHttpServer

	// Handler 完成路由注册并返回可直接挂载（或用于 httptest）的 http.Handler
	Handler() http.Handler

	Start(addr string) error
	Stop(ctx context.Context) error

	GetRaw() any
}

// Middleware 定义 HTTP 中间件签名
type Middleware func(ctx IHttpContext, next func() error) error

// IRouteGroup 定义路由组接口
type IRouteGroup interface {
	GET(path string, handler HttpHandler) IRouteGroup
	POST(path string, handler HttpHandler) IRouteGroup
	PUT(path string, handler HttpHandler) IRouteGroup
	DELETE(path string, handler HttpHandler) IRouteGroup

	Group(prefix string) IRouteGroup
	Use(middleware ...Middleware) IRouteGroup
}
