package middleware

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"childsvc/errors"
	httpx "childsvc/http"
	"childsvc/http/basic"
	"childsvc/logging"
	"childsvc/metrics"
)

func serve(t *testing.T, srv httpx.IHttpServer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	srv := basic.NewHTTPServer(nil)
	srv.Use(RequestID())

	var seen string
	srv.GET("/x", func(ctx httpx.IHttpContext) error {
		seen = httpx.GetRequestID(ctx.GetContext())
		return ctx.WriteStatus(http.StatusOK)
	})

	rec := serve(t, srv, httptest.NewRequest(http.MethodGet, "/x", nil))
	got := rec.Header().Get(httpx.HeaderRequestID)
	require.NotEmpty(t, got)
	assert.Equal(t, got, seen)
	_, err := uuid.Parse(got)
	assert.NoError(t, err)
}

func TestRequestID_KeepsIncoming(t *testing.T) {
	srv := basic.NewHTTPServer(nil)
	srv.Use(RequestID())
	srv.GET("/x", func(ctx httpx.IHttpContext) error { return ctx.WriteStatus(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(httpx.HeaderRequestID, "req-abc")
	rec := serve(t, srv, req)
	assert.Equal(t, "req-abc", rec.Header().Get(httpx.HeaderRequestID))
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewStdLogger("").WithOutput(log.New(&buf, "", 0))

	srv := basic.NewHTTPServer(nil)
	srv.Use(RequestID(), AccessLog(logger))
	srv.GET("/missing", func(ctx httpx.IHttpContext) error { return errors.ErrNotFound })

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(httpx.HeaderRequestID, "req-1")
	rec := serve(t, srv, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	out := buf.String()
	assert.Contains(t, out, "http request")
	assert.Contains(t, out, "status=404")
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "path=/missing")
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	srv := basic.NewHTTPServer(nil)
	srv.Use(Metrics(m))
	srv.GET("/api/child/:id", func(ctx httpx.IHttpContext) error { return ctx.WriteStatus(http.StatusOK) })
	srv.GET("/boom", func(ctx httpx.IHttpContext) error { return context.Canceled })

	serve(t, srv, httptest.NewRequest(http.MethodGet, "/api/child/1", nil))
	serve(t, srv, httptest.NewRequest(http.MethodGet, "/api/child/2", nil))
	serve(t, srv, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/child/:id", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/boom", "500")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.RequestsInFlight))
}
