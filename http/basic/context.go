package basic

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"

	"childsvc/errors"
	httpx "childsvc/http"
)

// 请求体上限（1MB）
const maxBodyBytes = 1 << 20

type HttpContext struct {
	request *http.Request
	writer  http.ResponseWriter
	params  map[string]string
	reqCtx  context.Context
	status  int
	aborted bool
	values  map[string]any
	body    []byte
}

func NewBaseHttpContext(w http.ResponseWriter, r *http.Request) *HttpContext {
	return &HttpContext{
		request: r,
		writer:  w,
		params:  make(map[string]string),
		reqCtx:  r.Context(),
		status:  http.StatusOK,
		values:  make(map[string]any),
	}
}

// implement httpx.IHttpContext
func (c *HttpContext) GetMethod() string           { return c.request.Method }
func (c *HttpContext) GetPath() string             { return c.request.URL.Path }
func (c *HttpContext) GetQuery(key string) string  { return c.request.URL.Query().Get(key) }
func (c *HttpContext) GetParam(key string) string  { return c.params[key] }
func (c *HttpContext) GetHeader(key string) string { return c.request.Header.Get(key) }

// GetBody 读取请求体，多次调用返回同一内容
func (c *HttpContext) GetBody() ([]byte, error) {
	if c.body != nil {
		return c.body, nil
	}
	if c.request.Body == nil {
		c.body = []byte{}
		return c.body, nil
	}
	defer c.request.Body.Close()
	buf, err := io.ReadAll(io.LimitReader(c.request.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "failed to read request body")
	}
	c.body = buf
	return buf, nil
}

func (c *HttpContext) BindJSON(obj any) error {
	body, err := c.GetBody()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, obj); err != nil {
		return errors.WrapError(err, errors.ErrCodeInvalidInput, "failed to parse JSON")
	}
	return nil
}

func (c *HttpContext) SetStatus(code int)          { c.status = code }
func (c *HttpContext) SetHeader(key, value string) { c.writer.Header().Set(key, value) }

func (c *HttpContext) JSON(code int, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeInternal, "failed to serialize JSON")
	}
	return c.Data(code, "application/json", data)
}

func (c *HttpContext) String(code int, text string) error {
	return c.Data(code, "text/plain; charset=utf-8", []byte(text))
}

func (c *HttpContext) Data(code int, contentType string, data []byte) error {
	if contentType != "" {
		c.SetHeader(httpx.HeaderContentType, contentType)
	}
	c.SetStatus(code)
	c.writer.WriteHeader(c.status)
	c.values[httpx.ResponseWrittenKey] = true
	if len(data) == 0 {
		return nil
	}
	_, err := c.writer.Write(data)
	return err
}

func (c *HttpContext) WriteStatus(code int) error {
	return c.Data(code, "", nil)
}

func (c *HttpContext) GetContext() context.Context    { return c.reqCtx }
func (c *HttpContext) SetContext(ctx context.Context) { c.reqCtx = ctx }
func (c *HttpContext) GetQueryParams() url.Values     { return c.request.URL.Query() }
func (c *HttpContext) Set(key string, value any)      { c.values[key] = value }
func (c *HttpContext) Get(key string) (any, bool)     { v, ok := c.values[key]; return v, ok }
func (c *HttpContext) MustGet(key string) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	panic("Key \"" + key + "\" does not exist")
}
func (c *HttpContext) Abort()                   { c.aborted = true }
func (c *HttpContext) AbortWithStatus(code int) { _ = c.WriteStatus(code); c.Abort() }
func (c *HttpContext) AbortWithStatusJSON(code int, jsonObj any) {
	_ = c.JSON(code, jsonObj)
	c.Abort()
}
func (c *HttpContext) IsAborted() bool { return c.aborted }
func (c *HttpContext) ClientIP() string {
	if host, _, err := net.SplitHostPort(c.request.RemoteAddr); err == nil {
		return host
	}
	return c.request.RemoteAddr
}
func (c *HttpContext) UserAgent() string         { return c.request.UserAgent() }
func (c *HttpContext) GetRequest() *http.Request { return c.request }
func (c *HttpContext) GetRaw() any {
	return map[string]any{"request": c.request, "response": c.writer}
}
func (c *HttpContext) SetParam(key, value string) { c.params[key] = value }

func (c *HttpContext) GetStatus() int { return c.status }

var _ httpx.IHttpContext = (*HttpContext)(nil)
