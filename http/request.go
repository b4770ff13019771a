// package http 提供与具体引擎无关的 HTTP 接口，遵循接口隔离原则
package http

import (
	"net/http"
	"net/url"
)

// IRequestReader 请求读取接口 - 只负责读取请求数据
type IRequestReader interface {
	// 基础信息
	GetMethod() string
	GetPath() string
	GetHeader(key string) string
	GetQuery(key string) string
	GetParam(key string) string
	GetQueryParams() url.Values

	// 请求体
	GetBody() ([]byte, error)
	GetRequest() *http.Request

	// 客户端信息
	ClientIP() string
	UserAgent() string
}

// IRequestBinder 请求绑定接口 - 只负责数据绑定
type IRequestBinder interface {
	BindJSON(obj any) error
}

// 常用头部
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"
	HeaderLocation      = "Location"
	HeaderContentType   = "Content-Type"
)
