// Package middleware 提供与引擎无关的通用 HTTP 中间件。
package middleware

import (
	"time"

	httpx "childsvc/http"
	"childsvc/logging"
	"childsvc/metrics"
)

// RequestID 读取或生成 X-Request-ID，写回响应头并注入请求 context
func RequestID() httpx.Middleware {
	return func(ctx httpx.IHttpContext, next func() error) error {
		id := ctx.GetHeader(httpx.HeaderRequestID)
		if id == "" {
			id = httpx.GenerateRequestID()
		}
		ctx.SetHeader(httpx.HeaderRequestID, id)
		ctx.SetContext(httpx.WithRequestID(ctx.GetContext(), id))
		return next()
	}
}

// status 返回本次请求最终的状态码：错误尚未写出时按错误映射
func status(ctx httpx.IHttpContext, err error) int {
	if err != nil && !httpx.IsResponseWritten(ctx) {
		return httpx.StatusFromError(err)
	}
	return ctx.GetStatus()
}

// AccessLog 请求完成后记录一行访问日志
func AccessLog(logger logging.Logger) httpx.Middleware {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return func(ctx httpx.IHttpContext, next func() error) error {
		start := time.Now()
		err := next()
		fields := []logging.Field{
			logging.String("method", ctx.GetMethod()),
			logging.String("path", ctx.GetPath()),
			logging.Int("status", status(ctx, err)),
			logging.Duration("elapsed", time.Since(start)),
			logging.String("client_ip", ctx.ClientIP()),
			logging.String("request_id", httpx.GetRequestID(ctx.GetContext())),
		}
		if err != nil {
			fields = append(fields, logging.Error(err))
		}
		logger.Info(ctx.GetContext(), "http request", fields...)
		return err
	}
}

// Metrics 记录请求数、耗时与并发数
func Metrics(m *metrics.Metrics) httpx.Middleware {
	return func(ctx httpx.IHttpContext, next func() error) error {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		err := next()
		m.ObserveRequest(ctx.GetMethod(), ctx.GetPath(), status(ctx, err), time.Since(start))
		return err
	}
}
