package http

import (
	"context"

	"github.com/google/uuid"
)

// Context keys for tracing
type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeySubject   contextKey = "subject"
)

// 追踪元数据键（用于消息头等跨进程载体）
const (
	MetadataRequestID = "request_id"
	MetadataSubject   = "subject"
)

// WithRequestID 在 context 中设置 request_id
//
// Request ID 标识一次 HTTP 请求，贯穿日志、响应头与对外发布的通知。
//
// 示例:
//
//	ctx := httpx.WithRequestID(ctx, "req-123")
//	requestID := httpx.GetRequestID(ctx) // "req-123"
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}

// GetRequestID 从 context 中获取 request_id
//
// 如果不存在，返回空字符串。
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// WithSubject 在 context 中设置已认证主体（JWT sub）
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, contextKeySubject, subject)
}

// GetSubject 从 context 中获取已认证主体
func GetSubject(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(contextKeySubject).(string); ok {
		return s
	}
	return ""
}

// GenerateRequestID 生成新的 request ID（UUID v4）
func GenerateRequestID() string {
	return uuid.NewString()
}

// InjectTraceContext 将追踪上下文注入到 metadata
//
// 从 context 中提取 request_id 和 subject，注入到提供的 metadata map 中。
func InjectTraceContext(ctx context.Context, metadata map[string]string) {
	if ctx == nil || metadata == nil {
		return
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		metadata[MetadataRequestID] = requestID
	}

	if subject := GetSubject(ctx); subject != "" {
		metadata[MetadataSubject] = subject
	}
}

// ExtractTraceContext 从 metadata 提取追踪上下文
func ExtractTraceContext(ctx context.Context, metadata map[string]string) context.Context {
	if ctx == nil || metadata == nil {
		return ctx
	}

	if requestID := metadata[MetadataRequestID]; requestID != "" {
		ctx = WithRequestID(ctx, requestID)
	}

	if subject := metadata[MetadataSubject]; subject != "" {
		ctx = WithSubject(ctx, subject)
	}

	return ctx
}
