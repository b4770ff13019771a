// Package database 提供实体存储使用的最小数据库抽象，具体驱动（modernc sqlite、pgx）统一经 database/sql 访问。
// 不提供事务：每条语句独立提交。
package database

import (
	"context"
	"database/sql"
)

// IDatabase 通用数据库接口
type IDatabase interface {
	// 查询操作
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow

	// 执行操作
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// 连接管理
	Ping(ctx context.Context) error
	Close() error

	// 获取原始连接（用于特殊场景）
	Raw() any
}

// IDialectNameProvider 可选接口：提供底层数据库方言名称
//
// 实现方应返回诸如 "sqlite"、"postgres"、"pgx" 等 driver/dialect 名，
// 供存储层推断占位符与引号规则。
type IDialectNameProvider interface {
	GetDialectName() string
}

// IRows 查询结果集接口
type IRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// IRow 单行结果接口
type IRow interface {
	Scan(dest ...any) error
}

// DBConfig 数据库配置
type DBConfig struct {
	Driver   string `mapstructure:"driver"`   // sqlite, pgx
	Database string `mapstructure:"database"` // DSN 或文件路径

	// 连接池配置
	MaxOpenConns    int `mapstructure:"max_open_conns"`
	MaxIdleConns    int `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`  // 秒
	ConnMaxIdleTime int `mapstructure:"conn_max_idle_time"` // 秒
}
