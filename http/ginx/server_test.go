package ginx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"childsvc/errors"
	httpx "childsvc/http"
)

// TestServer_MiddlewareOrder 与 basic 引擎一致的中间件顺序
func TestServer_MiddlewareOrder(t *testing.T) {
	srv := NewServer(nil)
	order := make([]string, 0)

	srv.Use(func(ctx httpx.IHttpContext, next func() error) error {
		order = append(order, "global-before")
		err := next()
		order = append(order, "global-after")
		return err
	})
	g := srv.Group("/api")
	g.Use(func(ctx httpx.IHttpContext, next func() error) error {
		order = append(order, "group-before")
		err := next()
		order = append(order, "group-after")
		return err
	})
	g.GET("/test", func(ctx httpx.IHttpContext) error {
		order = append(order, "handler")
		return ctx.JSON(http.StatusOK, map[string]string{"ok": "1"})
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"global-before", "group-before", "handler", "group-after", "global-after"}, order)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

// TestServer_ParamsBodyAndErrors 路径参数、请求体读取与统一错误写出
func TestServer_ParamsBodyAndErrors(t *testing.T) {
	srv := NewServer(nil)
	g := srv.Group("/api/items")
	g.POST("", func(ctx httpx.IHttpContext) error {
		var in struct{ Name string }
		if err := ctx.BindJSON(&in); err != nil {
			return err
		}
		return ctx.String(http.StatusCreated, in.Name)
	})
	g.GET("/:id", func(ctx httpx.IHttpContext) error {
		if ctx.GetParam("id") == "0" {
			return errors.ErrNotFound
		}
		return ctx.String(http.StatusOK, ctx.GetParam("id"))
	})
	g.DELETE("/:id", func(ctx httpx.IHttpContext) error { return ctx.WriteStatus(http.StatusOK) })
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"name":"a"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "a", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), string(errors.ErrCodeInvalidInput))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/7", nil))
	assert.Equal(t, "7", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/0", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/items/7", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/items/7", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// TestContext_StorageAndStatus 上下文存储与状态码
func TestContext_StorageAndStatus(t *testing.T) {
	srv := NewServer(nil)
	var status int
	srv.Use(func(ctx httpx.IHttpContext, next func() error) error {
		ctx.Set("k", "v")
		err := next()
		status = ctx.GetStatus()
		return err
	})
	srv.GET("/s", func(ctx httpx.IHttpContext) error {
		v, ok := ctx.Get("k")
		require.True(t, ok)
		assert.False(t, httpx.IsResponseWritten(ctx))
		return ctx.String(http.StatusAccepted, v.(string))
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, http.StatusAccepted, status)
}
