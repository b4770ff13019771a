package basic

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	httpx "childsvc/http"
	"childsvc/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeServer struct {
	name     string
	startErr error
	stop     chan struct{}
	closed   *[]string
}

func (f *fakeServer) Name() string { return f.name }
func (f *fakeServer) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stop
	return nil
}
func (f *fakeServer) Close() error {
	*f.closed = append(*f.closed, f.name)
	close(f.stop)
	return nil
}

// TestManager_ServesUntilCanceled 启动 HandlerServer，取消后优雅退出
func TestManager_ServesUntilCanceled(t *testing.T) {
	srv := NewHTTPServer(&httpx.WebConfig{})
	srv.GET("/ping", func(ctx httpx.IHttpContext) error { return ctx.String(http.StatusOK, "pong") })
	api := NewHandlerServer("api", "127.0.0.1:0", srv.Handler(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewManager().WithoutSignals().WithLogger(logging.NewNoopLogger()).Register(api).Run(ctx)
	}()

	require.Eventually(t, func() bool { return api.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + api.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}
}

// TestManager_StartFailureClosesInReverseOrder 任一服务启动失败时按注册逆序关闭全部服务
func TestManager_StartFailureClosesInReverseOrder(t *testing.T) {
	var closed []string
	a := &fakeServer{name: "a", stop: make(chan struct{}), closed: &closed}
	b := &fakeServer{name: "b", stop: make(chan struct{}), closed: &closed}
	boom := errors.New("bind failed")
	c := &fakeServer{name: "c", startErr: boom, stop: make(chan struct{}), closed: &closed}

	err := NewManager().WithoutSignals().WithLogger(logging.NewNoopLogger()).
		WithShutdownTimeout(2*time.Second).
		WithServers(a, b, c).
		Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"c", "b", "a"}, closed)
}

// TestHttpServer_StartStop IHttpServer 自身的启停
func TestHttpServer_StartStop(t *testing.T) {
	srv := NewHTTPServer(&httpx.WebConfig{Host: "127.0.0.1", Port: 0})
	done := make(chan error, 1)
	go func() { done <- srv.Start("127.0.0.1:0") }()

	require.Eventually(t, func() bool {
		srv.mu.RLock()
		defer srv.mu.RUnlock()
		return srv.server != nil
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.NoError(t, <-done)
}
