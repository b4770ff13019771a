// Package retry 提供带指数退避的重试，用于启动阶段等待存储与消息系统就绪
package retry

import (
	"context"
	"math"
	"time"
)

// Operation 可重试的操作；attempt 从 1 开始
type Operation func(ctx context.Context, attempt int) error

// Config 重试配置
type Config struct {
	MaxAttempts   int           `mapstructure:"max_attempts"` // 含首次
	InitialDelay  time.Duration `mapstructure:"initial_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`

	// OnRetry 每次失败且仍将重试时调用
	OnRetry func(attempt int, delay time.Duration, err error) `mapstructure:"-"`
}

// DefaultConfig 默认 5 次、200ms 起步、最长 5s
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   5,
		InitialDelay:  200 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      5 * time.Second,
	}
}

// Delay 第 attempt 次失败后的等待时间
func (c Config) Delay(attempt int) time.Duration {
	factor := c.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	d := time.Duration(float64(c.InitialDelay) * math.Pow(factor, float64(attempt-1)))
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Do 执行 op 直到成功、次数用尽或 ctx 结束；返回最后一次错误
func Do(ctx context.Context, cfg Config, op Operation) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = op(ctx, attempt); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		delay := cfg.Delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, lastErr)
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}
