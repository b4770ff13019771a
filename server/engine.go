package server

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"childsvc/logging"
)

// IServer 服务需实现的生命周期步骤
type IServer interface {
	Name() string

	// LoadConfig 解析配置文件与环境变量
	LoadConfig() error

	// SetupDependencies 连接存储与消息系统，装配门面与路由
	SetupDependencies(ctx context.Context) error

	// StartBackgroundTasks 启动非阻塞的后台任务
	StartBackgroundTasks(ctx context.Context) error

	// Run 阻塞运行，ctx 结束时返回
	Run(ctx context.Context) error

	// Shutdown 释放资源
	Shutdown(ctx context.Context) error
}

// Engine 按固定顺序编排 IServer 的生命周期：
// LoadConfig -> SetupDependencies -> StartBackgroundTasks -> Run -> Shutdown
type Engine struct {
	server  IServer
	options *Options
	logger  logging.Logger

	mu    sync.RWMutex
	state State
}

// NewEngine 创建引擎
func NewEngine(server IServer, opts ...Option) *Engine {
	options := DefaultOptions()
	if name := server.Name(); name != "" {
		options.Name = name
	}
	for _, o := range opts {
		o(options)
	}
	return &Engine{
		server:  server,
		options: options,
		logger:  logging.GetLogger().WithFields(logging.String("component", "server"), logging.String("service", options.Name)),
		state:   StatePending,
	}
}

// State 当前状态
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Start 执行完整生命周期，直到 ctx 结束、收到信号或 Run 返回
func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	if e.options.HandleSignals {
		ctx, cancel = signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	e.logger.Info(ctx, "starting", logging.String("version", e.options.Version))

	e.setState(StateInitializing)
	if err := e.server.LoadConfig(); err != nil {
		e.setState(StateError)
		return fmt.Errorf("failed to load config: %w", err)
	}

	setupCtx, setupCancel := context.WithTimeout(ctx, e.options.StartupTimeout)
	err := e.server.SetupDependencies(setupCtx)
	setupCancel()
	if err != nil {
		e.setState(StateError)
		e.shutdown()
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	e.setState(StatePrepared)

	for _, hook := range e.options.OnBeforeStart {
		if err := hook(ctx); err != nil {
			e.setState(StateError)
			e.shutdown()
			return fmt.Errorf("before start hook failed: %w", err)
		}
	}

	if err := e.server.StartBackgroundTasks(ctx); err != nil {
		e.setState(StateError)
		e.shutdown()
		return fmt.Errorf("failed to start background tasks: %w", err)
	}

	e.setState(StateRunning)
	errCh := make(chan error, 1)
	go func() { errCh <- e.server.Run(ctx) }()

	var runErr error
	select {
	case runErr = <-errCh:
		cancel()
	case <-ctx.Done():
		e.logger.Info(context.Background(), "shutdown requested")
		runErr = <-errCh
	}

	e.setState(StateStopping)
	if err := e.shutdown(); err != nil {
		e.setState(StateError)
		return err
	}
	if runErr != nil {
		e.setState(StateError)
		return fmt.Errorf("server execution error: %w", runErr)
	}
	e.setState(StateStopped)
	e.logger.Info(context.Background(), "stopped")
	return nil
}

func (e *Engine) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.options.ShutdownTimeout)
	defer cancel()

	if err := e.server.Shutdown(ctx); err != nil {
		e.logger.Error(ctx, "shutdown error", logging.Error(err))
		return err
	}
	for _, hook := range e.options.OnAfterStop {
		if err := hook(ctx); err != nil {
			e.logger.Warn(ctx, "after stop hook failed", logging.Error(err))
		}
	}
	return nil
}
