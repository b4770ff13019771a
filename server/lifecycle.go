// Package server 定义服务生命周期模板（加载配置、装配依赖、后台任务、运行、关闭）
package server

import (
	"context"
	"time"
)

// State 生命周期状态
type State int

const (
	StatePending State = iota
	StateInitializing
	StatePrepared
	StateRunning
	StateStopping
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateInitializing:
		return "Initializing"
	case StatePrepared:
		return "Prepared"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Hook 生命周期回调
type Hook func(ctx context.Context) error

// Options 引擎选项
type Options struct {
	Name            string
	Version         string
	StartupTimeout  time.Duration
	ShutdownTimeout time.Duration
	// HandleSignals 为 false 时只由 Start 的 ctx 控制退出
	HandleSignals bool

	OnBeforeStart []Hook
	OnAfterStop   []Hook
}

// Option 选项函数
type Option func(*Options)

// DefaultOptions 默认选项
func DefaultOptions() *Options {
	return &Options{
		Name:            "childsvc",
		Version:         "0.0.0",
		StartupTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		HandleSignals:   true,
	}
}

func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

func WithVersion(version string) Option {
	return func(o *Options) { o.Version = version }
}

func WithStartupTimeout(t time.Duration) Option {
	return func(o *Options) { o.StartupTimeout = t }
}

func WithShutdownTimeout(t time.Duration) Option {
	return func(o *Options) { o.ShutdownTimeout = t }
}

// WithoutSignals 不监听 SIGINT/SIGTERM（测试用）
func WithoutSignals() Option {
	return func(o *Options) { o.HandleSignals = false }
}

// WithBeforeStart 添加启动前回调
func WithBeforeStart(fn Hook) Option {
	return func(o *Options) { o.OnBeforeStart = append(o.OnBeforeStart, fn) }
}

// WithAfterStop 添加停止后回调
func WithAfterStop(fn Hook) Option {
	return func(o *Options) { o.OnAfterStop = append(o.OnAfterStop, fn) }
}
