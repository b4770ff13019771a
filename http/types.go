package http

import (
	"net"
	"strconv"
	"time"
)

// ErrorPayload 通用错误响应
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code, message, details string) *ErrorPayload {
	return &ErrorPayload{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WebConfig HTTP 服务基础配置
type WebConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Engine       string        `mapstructure:"engine"` // basic | gin
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr 监听地址 host:port
func (c *WebConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
