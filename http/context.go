package http

import "context"

// IResponseWriter 响应写入接口 - 只负责写入响应
type IResponseWriter interface {
	// 状态和头部
	SetStatus(code int)
	SetHeader(key, value string)

	// 响应内容
	JSON(code int, obj any) error
	String(code int, text string) error
	Data(code int, contentType string, data []byte) error

	// WriteStatus 只写出状态码，响应体为空
	WriteStatus(code int) error

	// GetStatus 返回当前（或已写出的）状态码
	GetStatus() int
}

// IContextStorage 上下文存储接口 - 只负责键值存储
type IContextStorage interface {
	Set(key string, value any)
	Get(key string) (any, bool)
	MustGet(key string) any
}

// IFlowControl 流程控制接口 - 只负责请求流程控制
type IFlowControl interface {
	Abort()
	AbortWithStatus(code int)
	AbortWithStatusJSON(code int, jsonObj any)
	IsAborted() bool
}

// IHttpContext 组合接口 - 通过组合而非继承
type IHttpContext interface {
	IRequestReader
	IRequestBinder
	IResponseWriter
	IContextStorage
	IFlowControl

	// GetContext 返回请求级 context，向下传递给门面与存储
	GetContext() context.Context
	SetContext(ctx context.Context)

	// 原始对象访问（用于特殊情况）
	GetRaw() any
}

// HttpHandler 处理器函数类型
type HttpHandler func(ctx IHttpContext) error

// ResponseWrittenKey 上下文存储键：响应已写出时置为 true，错误写入器据此避免重复写入
const ResponseWrittenKey = "response_written"

// IsResponseWritten 判断当前请求是否已写出响应
func IsResponseWritten(ctx IContextStorage) bool {
	v, ok := ctx.Get(ResponseWrittenKey)
	if !ok {
		return false
	}
	written, _ := v.(bool)
	return written
}
