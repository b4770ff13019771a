package basic

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpx "childsvc/http"
	"childsvc/logging"
)

// Server 通用服务生命周期接口（供 Manager 管理）
//
// Start 阻塞直至服务停止；Close 触发停止。
type Server interface {
	Start(ctx context.Context) error
	Close() error
	Name() string
}

// Options 定义运行选项
type Options struct {
	ShutdownTimeout time.Duration
}

// Manager 统一管理多个 Server 的生命周期（启动/关闭/优雅退出）
type Manager struct {
	logger  logging.Logger
	servers []Server
	opts    Options
	signals bool
}

// NewManager 创建 Server 管理器（默认监听 SIGINT/SIGTERM）
func NewManager() *Manager {
	return &Manager{
		logger:  logging.GetLogger(),
		servers: make([]Server, 0),
		opts:    Options{ShutdownTimeout: 10 * time.Second},
		signals: true,
	}
}

// WithLogger 设置日志实现
func (m *Manager) WithLogger(l logging.Logger) *Manager {
	if l != nil {
		m.logger = l
	}
	return m
}

// WithServers 批量注册 Server
func (m *Manager) WithServers(svcs ...Server) *Manager {
	m.servers = append(m.servers, svcs...)
	return m
}

// Register 注册单个 Server
func (m *Manager) Register(s Server) *Manager { return m.WithServers(s) }

// WithShutdownTimeout 配置优雅退出超时
func (m *Manager) WithShutdownTimeout(d time.Duration) *Manager {
	if d > 0 {
		m.opts.ShutdownTimeout = d
	}
	return m
}

// WithoutSignals 不监听系统信号，仅由 ctx 控制退出（测试用）
func (m *Manager) WithoutSignals() *Manager {
	m.signals = false
	return m
}

// Run 启动所有 Server，直到 ctx 结束、收到系统信号或任一 Server 失败，然后按注册逆序关闭
func (m *Manager) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	if m.signals {
		ctx, cancel = signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	m.logger.Info(ctx, "starting manager", logging.Int("servers", len(m.servers)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(m.servers))

	startAt := time.Now()
	for _, s := range m.servers {
		srv := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.logger.Info(ctx, "server starting", logging.String("name", srv.Name()))
			if err := srv.Start(ctx); err != nil {
				m.logger.Error(ctx, "server start error", logging.String("name", srv.Name()), logging.Error(err))
				errCh <- err
				return
			}
			m.logger.Info(ctx, "server exited", logging.String("name", srv.Name()))
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		m.logger.Info(context.Background(), "shutdown signal received")
	case err := <-errCh:
		runErr = err
		cancel()
	}

	// 关闭：后启动先关闭
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), m.opts.ShutdownTimeout)
	defer cancelShutdown()

	closeErrors := make([]error, 0)
	for i := len(m.servers) - 1; i >= 0; i-- {
		s := m.servers[i]
		t0 := time.Now()
		if err := s.Close(); err != nil {
			m.logger.Warn(shutdownCtx, "server close error", logging.String("name", s.Name()), logging.Error(err))
			closeErrors = append(closeErrors, err)
		} else {
			m.logger.Info(shutdownCtx, "server closed", logging.String("name", s.Name()), logging.Int64("ms", time.Since(t0).Milliseconds()))
		}
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
		m.logger.Info(shutdownCtx, "manager stopped", logging.Int64("ms", time.Since(startAt).Milliseconds()))
	case <-shutdownCtx.Done():
		m.logger.Warn(shutdownCtx, "manager shutdown timeout", logging.Int64("timeout_ms", m.opts.ShutdownTimeout.Milliseconds()))
	}

	if len(closeErrors) > 0 {
		runErr = errors.Join(append([]error{runErr}, closeErrors...)...)
	}
	return runErr
}

// HandlerServer 以 http.Server 承载任意 http.Handler（API 引擎或 /metrics）
type HandlerServer struct {
	name    string
	addr    string
	handler http.Handler
	config  *httpx.WebConfig
	timeout time.Duration

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewHandlerServer 创建 HandlerServer；config 可为 nil
func NewHandlerServer(name, addr string, handler http.Handler, config *httpx.WebConfig) *HandlerServer {
	if config == nil {
		config = &httpx.WebConfig{}
	}
	return &HandlerServer{name: name, addr: addr, handler: handler, config: config, timeout: 5 * time.Second}
}

func (h *HandlerServer) Name() string { return h.name }

// Start 监听并阻塞服务，直到 Close
func (h *HandlerServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      h.handler,
		ReadTimeout:  h.config.ReadTimeout,
		WriteTimeout: h.config.WriteTimeout,
		IdleTimeout:  h.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	h.mu.Lock()
	h.server = srv
	h.listener = ln
	h.mu.Unlock()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr 返回实际监听地址（监听 :0 时用于获取端口）；未启动时返回空
func (h *HandlerServer) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Close 优雅关闭
func (h *HandlerServer) Close() error {
	h.mu.Lock()
	srv := h.server
	h.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

var _ Server = (*HandlerServer)(nil)
