package server

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"childsvc/app/api"
	"childsvc/config"
	"childsvc/domain/child"
	"childsvc/domain/crud"
	httpx "childsvc/http"
	"childsvc/http/basic"
	"childsvc/http/ginx"
	"childsvc/http/header"
	"childsvc/http/middleware"
	"childsvc/logging"
	"childsvc/messaging"
	"childsvc/messaging/natspub"
	"childsvc/metrics"
	"childsvc/patterns/retry"
	"childsvc/security"
)

// Server child 服务：按配置装配存储、门面、REST 路由、门禁、指标与结果通知
type Server struct {
	configPath string
	config     *config.Config
	logger     logging.Logger

	store     ChildStore
	facade    *crud.Facade[*child.Child, int64]
	engine    httpx.IHttpServer
	gate      *security.Gate
	metrics   *metrics.Metrics
	publisher *natspub.Publisher

	manager   *basic.Manager
	apiServer atomic.Pointer[basic.HandlerServer]
}

// ServerOption 构造选项
type ServerOption func(*Server)

// WithConfigPath 指定配置文件
func WithConfigPath(path string) ServerOption {
	return func(s *Server) { s.configPath = path }
}

// WithConfig 直接使用给定配置，跳过文件与环境变量加载
func WithConfig(cfg *config.Config) ServerOption {
	return func(s *Server) { s.config = cfg }
}

// NewServer 创建服务
func NewServer(opts ...ServerOption) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Name() string { return "childsvc" }

// Config 已加载的配置
func (s *Server) Config() *config.Config { return s.config }

// LoadConfig 加载配置并初始化全局日志
func (s *Server) LoadConfig() error {
	if s.config == nil {
		cfg, err := config.Load(s.configPath)
		if err != nil {
			return err
		}
		s.config = cfg
	} else if err := s.config.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(s.config.Log.Level)
	if err != nil {
		return err
	}
	logging.SetLogger(logging.NewStdLogger(s.config.Log.Prefix).WithLevel(level))
	s.logger = logging.GetLogger().WithFields(logging.String("component", "server"))
	return nil
}

// SetupDependencies 连接存储与 NATS，注册中间件与路由
func (s *Server) SetupDependencies(ctx context.Context) error {
	cfg := s.config

	var store ChildStore
	err := retry.Do(ctx, s.retryConfig("store"), func(ctx context.Context, _ int) error {
		var err error
		store, err = OpenStore(ctx, cfg.Store)
		return err
	})
	if err != nil {
		return err
	}
	s.store = store
	s.facade = crud.NewFacade[*child.Child, int64](child.EntityName, store, crud.WithLogger(logging.GetLogger()))
	s.logger.Info(ctx, "store ready", logging.String("driver", cfg.Store.Driver))

	if cfg.Metrics.Enabled {
		s.metrics = metrics.New()
	}

	if cfg.NATS.Enabled() {
		s.publisher = natspub.New(natspub.Config{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			Timeout:       cfg.NATS.Timeout,
			OnFailure:     s.countPublishFailure,
		})
		err := retry.Do(ctx, s.retryConfig("nats"), func(context.Context, int) error {
			return s.publisher.Connect()
		})
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		s.logger.Info(ctx, "nats connected", logging.String("url", cfg.NATS.URL))
	}

	s.engine, err = NewHTTPEngine(&cfg.Server)
	if err != nil {
		return err
	}
	s.gate = security.NewGate(cfg.Auth)
	s.engine.Use(middleware.RequestID(), middleware.AccessLog(logging.GetLogger()))
	if s.metrics != nil {
		s.engine.Use(middleware.Metrics(s.metrics))
	}
	s.engine.Use(s.gate.Middleware())

	if err := s.registerRoutes(); err != nil {
		return err
	}

	s.manager = basic.NewManager().
		WithLogger(logging.GetLogger()).
		WithoutSignals().
		WithShutdownTimeout(cfg.Server.ShutdownTimeout)
	apiServer := basic.NewHandlerServer("api", cfg.Server.Addr(), s.engine.Handler(), &cfg.Server)
	s.apiServer.Store(apiServer)
	s.manager.Register(apiServer)
	if s.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, s.metrics.Handler())
		s.manager.Register(basic.NewHandlerServer("metrics", cfg.Metrics.Addr, mux, nil))
	}
	return nil
}

// retryConfig 启动连接重试，每次失败记录告警
func (s *Server) retryConfig(target string) retry.Config {
	rc := s.config.StartupRetry
	rc.OnRetry = func(attempt int, delay time.Duration, err error) {
		s.logger.Warn(context.Background(), "connect failed, retrying",
			logging.String("target", target),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
	}
	return rc
}

func (s *Server) registerRoutes() error {
	cfg := s.config
	group := s.engine.Group("")
	api.RegisterHealth(group, "/healthz")

	var publisher messaging.IPublisher
	if s.publisher != nil {
		publisher = s.publisher
	}
	return api.NewResourceBuilder[*child.Child, int64](s.facade, child.NewEmpty, cfg.API.BasePath).
		Route(func(rc *api.RouteConfig[int64]) {
			rc.AppName = cfg.API.AppName
			rc.LocationPrefix = cfg.API.LocationPrefix
			rc.StrictDelete = cfg.API.StrictDelete
			rc.Publisher = publisher
			rc.OnOutcome = s.observeOutcome
		}).
		Register(group)
}

func (s *Server) observeOutcome(_ context.Context, alert header.Alert) {
	if s.metrics != nil {
		s.metrics.ObserveOutcome(alert.Entity, string(alert.Outcome))
	}
}

func (s *Server) countPublishFailure(event messaging.Event, _ error) {
	if s.metrics != nil {
		s.metrics.PublishFailures.WithLabelValues(event.Entity).Inc()
	}
}

// StartBackgroundTasks 当前无后台任务
func (s *Server) StartBackgroundTasks(ctx context.Context) error {
	s.logger.Info(ctx, "gate configured",
		logging.Bool("enabled", s.gate.Enabled()),
		logging.Any("protected_paths", s.config.Auth.ProtectedPaths))
	return nil
}

// Run 运行 API（及指标）服务，直到 ctx 结束
func (s *Server) Run(ctx context.Context) error {
	if s.manager == nil {
		return fmt.Errorf("server not set up")
	}
	return s.manager.Run(ctx)
}

// Shutdown 关闭 NATS 连接与存储
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close nats: %w", err))
		}
	}
	if s.store != nil {
		if err := closeStore(s.store); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return stdErrors.Join(errs...)
}

// Handler API 的 http.Handler（SetupDependencies 之后可用）
func (s *Server) Handler() http.Handler {
	if s.engine == nil {
		return nil
	}
	return s.engine.Handler()
}

// APIAddr API 实际监听地址（运行中可用）
func (s *Server) APIAddr() string {
	if h := s.apiServer.Load(); h != nil {
		return h.Addr()
	}
	return ""
}

// Gate 访问门禁
func (s *Server) Gate() *security.Gate { return s.gate }

// NewHTTPEngine 按配置创建 HTTP 引擎：basic（net/http）或 gin
func NewHTTPEngine(cfg *httpx.WebConfig) (httpx.IHttpServer, error) {
	switch cfg.Engine {
	case "", "basic":
		return basic.NewHTTPServer(cfg), nil
	case "gin":
		return ginx.NewServer(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported server engine %q", cfg.Engine)
	}
}

var _ IServer = (*Server)(nil)
