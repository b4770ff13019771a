package ginx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"childsvc/errors"
	httpx "childsvc/http"
)

// Context 将 *gin.Context 适配为 httpx.IHttpContext
type Context struct {
	c    *gin.Context
	body []byte
}

func newContext(c *gin.Context) *Context { return &Context{c: c} }

func (x *Context) GetMethod() string           { return x.c.Request.Method }
func (x *Context) GetPath() string             { return x.c.Request.URL.Path }
func (x *Context) GetHeader(key string) string { return x.c.GetHeader(key) }
func (x *Context) GetQuery(key string) string  { return x.c.Query(key) }
func (x *Context) GetParam(key string) string  { return x.c.Param(key) }
func (x *Context) GetQueryParams() url.Values  { return x.c.Request.URL.Query() }
func (x *Context) GetRequest() *http.Request   { return x.c.Request }
func (x *Context) ClientIP() string            { return x.c.ClientIP() }
func (x *Context) UserAgent() string           { return x.c.Request.UserAgent() }

func (x *Context) GetBody() ([]byte, error) {
	if x.body != nil {
		return x.body, nil
	}
	if x.c.Request.Body == nil {
		x.body = []byte{}
		return x.body, nil
	}
	buf, err := io.ReadAll(io.LimitReader(x.c.Request.Body, 1<<20))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "failed to read request body")
	}
	x.body = buf
	return buf, nil
}

// BindJSON 只解码，不触发 gin 的自动 400 写出，错误交由统一错误写入器处理
func (x *Context) BindJSON(obj any) error {
	body, err := x.GetBody()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, obj); err != nil {
		return errors.WrapError(err, errors.ErrCodeInvalidInput, "failed to parse JSON")
	}
	return nil
}

func (x *Context) SetStatus(code int)          { x.c.Status(code) }
func (x *Context) SetHeader(key, value string) { x.c.Header(key, value) }

func (x *Context) JSON(code int, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeInternal, "failed to serialize JSON")
	}
	return x.Data(code, "application/json", data)
}

func (x *Context) String(code int, text string) error {
	return x.Data(code, "text/plain; charset=utf-8", []byte(text))
}

func (x *Context) Data(code int, contentType string, data []byte) error {
	x.c.Set(httpx.ResponseWrittenKey, true)
	if len(data) == 0 {
		x.c.Status(code)
		x.c.Writer.WriteHeaderNow()
		return nil
	}
	x.c.Data(code, contentType, data)
	return nil
}

func (x *Context) WriteStatus(code int) error { return x.Data(code, "", nil) }
func (x *Context) GetStatus() int             { return x.c.Writer.Status() }

func (x *Context) Set(key string, value any)  { x.c.Set(key, value) }
func (x *Context) Get(key string) (any, bool) { return x.c.Get(key) }
func (x *Context) MustGet(key string) any     { return x.c.MustGet(key) }

func (x *Context) Abort()                   { x.c.Abort() }
func (x *Context) AbortWithStatus(code int) { _ = x.WriteStatus(code); x.c.Abort() }
func (x *Context) AbortWithStatusJSON(code int, jsonObj any) {
	_ = x.JSON(code, jsonObj)
	x.c.Abort()
}
func (x *Context) IsAborted() bool { return x.c.IsAborted() }

func (x *Context) GetContext() context.Context { return x.c.Request.Context() }
func (x *Context) SetContext(ctx context.Context) {
	x.c.Request = x.c.Request.WithContext(ctx)
}

func (x *Context) GetRaw() any { return x.c }

var _ httpx.IHttpContext = (*Context)(nil)
